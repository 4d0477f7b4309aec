package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/queue"
)

// statusClientClosedRequest is reported when the caller canceled the request.
const statusClientClosedRequest = 499

// DefaultMaxBodyBytes bounds a request body when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// MessageDTO carries a text body in Body. Binary bodies travel base64 encoded in
// BodyBase64, which takes precedence on requests and is used on responses
// whenever the body is not valid UTF-8.
type MessageDTO struct {
	ID         string            `json:"id,omitempty"`
	Body       string            `json:"body,omitempty"`
	BodyBase64 []byte            `json:"body_base64,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type ChannelsRequest struct {
	Names []string `json:"names" validate:"required,dive,required"`
}

type MessagesRequest struct {
	Messages []MessageDTO `json:"messages" validate:"required,dive"`
}

type ReceiveRequest struct {
	Count             int `json:"count" validate:"gte=0"`
	VisibilitySeconds int `json:"visibility_seconds" validate:"gte=0,lte=43200"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

// Handler exposes a queue.Messenger over HTTP.
type Handler struct {
	Messenger    queue.Messenger
	Validator    *validator.Validate
	MaxBodyBytes int64 // Request body limit
}

// New creates a Handler. A non-positive maxBodyBytes means DefaultMaxBodyBytes.
func New(m queue.Messenger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{Messenger: m, Validator: validator.New(), MaxBodyBytes: maxBodyBytes}
}

// Register adds the gateway routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", Healthz)
	mux.HandleFunc("GET /channels", h.ListChannels)
	mux.HandleFunc("POST /channels", h.CreateChannels)
	mux.HandleFunc("DELETE /channels", h.DeleteChannels)
	mux.HandleFunc("GET /channels/{name}/count", h.Count)
	mux.HandleFunc("POST /channels/{name}/messages", h.Send)
	mux.HandleFunc("POST /channels/{name}/receive", h.Receive)
	mux.HandleFunc("POST /channels/{name}/peek", h.Peek)
	mux.HandleFunc("POST /channels/{name}/delete", h.Delete)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	names, err := h.Messenger.ListChannels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": names})
}

func (h *Handler) CreateChannels(w http.ResponseWriter, r *http.Request) {
	var req ChannelsRequest
	if !h.decode(w, r, queue.OpCreateChannels, &req) {
		return
	}
	if err := h.Messenger.CreateChannels(r.Context(), req.Names); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteChannels(w http.ResponseWriter, r *http.Request) {
	var req ChannelsRequest
	if !h.decode(w, r, queue.OpDeleteChannels, &req) {
		return
	}
	if err := h.Messenger.DeleteChannels(r.Context(), req.Names); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Messenger.GetMessageCount(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req MessagesRequest
	if !h.decode(w, r, queue.OpSend, &req) {
		return
	}
	messages := fromDTO(req.Messages)
	if err := h.Messenger.Send(r.Context(), r.PathValue("name"), messages); err != nil {
		writeError(w, r, err)
		return
	}
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if !h.decodeOptional(w, r, queue.OpReceive, &req) {
		return
	}
	visibility := time.Duration(req.VisibilitySeconds) * time.Second
	messages, err := h.Messenger.Receive(r.Context(), r.PathValue("name"), req.Count, visibility)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toDTO(messages)})
}

func (h *Handler) Peek(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if !h.decodeOptional(w, r, queue.OpPeek, &req) {
		return
	}
	messages, err := h.Messenger.Peek(r.Context(), r.PathValue("name"), req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toDTO(messages)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req MessagesRequest
	if !h.decode(w, r, queue.OpDelete, &req) {
		return
	}
	if err := h.Messenger.Delete(r.Context(), r.PathValue("name"), fromDTO(req.Messages)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a required JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	return h.decodeBody(w, r, op, v, false)
}

// decodeOptional is decode for endpoints whose body may be empty.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	return h.decodeBody(w, r, op, v, true)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, op string, v any, optional bool) bool {
	body := http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		invalid := queue.InvalidArgument(op, r.PathValue("name"), "decode body: %v", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: invalid.Error(),
				Kind:  queue.KindInvalidArgument.String(),
			})
			return false
		}
		writeError(w, r, invalid)
		return false
	}
	return h.validate(w, r, op, v)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := h.Validator.Struct(v); err != nil {
		writeError(w, r, queue.InvalidArgument(op, r.PathValue("name"), "%v", err))
		return false
	}
	return true
}

func fromDTO(dtos []MessageDTO) []queue.Message {
	messages := make([]queue.Message, len(dtos))
	for i, d := range dtos {
		body := []byte(d.Body)
		if d.BodyBase64 != nil {
			body = d.BodyBase64
		}
		messages[i] = queue.Message{ID: d.ID, Body: body, Properties: d.Properties}
	}
	return messages
}

func toDTO(messages []queue.Message) []MessageDTO {
	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = MessageDTO{ID: m.ID, Properties: m.Properties}
		if utf8.Valid(m.Body) {
			dtos[i].Body = string(m.Body)
		} else {
			dtos[i].BodyBase64 = m.Body
		}
	}
	return dtos
}

func statusOf(err error) int {
	switch queue.KindOf(err) {
	case queue.KindInvalidArgument, queue.KindDeliveryHandle:
		return http.StatusBadRequest
	case queue.KindChannelMissing:
		return http.StatusNotFound
	case queue.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorCtx(r.Context(), "request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Kind:  queue.KindOf(err).String(),
		Code:  queue.CodeOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
