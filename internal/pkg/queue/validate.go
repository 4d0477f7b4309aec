package queue

// ValidateChannel rejects an empty channel name.
func ValidateChannel(op, channel string) error {
	if channel == "" {
		return InvalidArgument(op, channel, "channel name is required")
	}
	return nil
}

// ValidateNames rejects a nil name set or any empty name in it.
func ValidateNames(op string, names []string) error {
	if names == nil {
		return InvalidArgument(op, "", "channel names are required")
	}
	for i, name := range names {
		if name == "" {
			return InvalidArgument(op, "", "channel name at index %d is empty", i)
		}
	}
	return nil
}

// ValidateMessages rejects an empty channel name or a nil message list.
func ValidateMessages(op, channel string, messages []Message) error {
	if err := ValidateChannel(op, channel); err != nil {
		return err
	}
	if messages == nil {
		return InvalidArgument(op, channel, "messages are required")
	}
	return nil
}

// RequireDeliveryHandles fails when any message was not received through a Messenger.
func RequireDeliveryHandles(op, channel string, messages []Message) error {
	for i, m := range messages {
		if _, ok := m.DeliveryHandle(); !ok {
			return &Error{
				Kind:    KindDeliveryHandle,
				Op:      op,
				Channel: channel,
				Err:     &BatchError{Failures: []BatchFailure{{Index: i, ID: m.ID, Code: "MissingDeliveryHandle"}}},
			}
		}
	}
	return nil
}
