package redisQueue

import "github.com/redis/go-redis/v9"

// errNonExistentQueue is the error reply prefix the scripts return for an
// unknown channel.
const errNonExistentQueue = "NONEXISTENT_QUEUE"

// Keys of one channel, in the order the scripts expect them:
// channels set, ready list, message hash, in-flight zset, handle hash, handle sequence.

// requeueExpired moves messages whose visibility deadline (ARGV[2], unix ms)
// passed back to the consuming end of the ready list and forgets their handles.
const requeueExpired = `
local expired = redis.call('ZRANGEBYSCORE', KEYS[4], '-inf', ARGV[2])
for _, h in ipairs(expired) do
  local id = redis.call('HGET', KEYS[5], h)
  redis.call('ZREM', KEYS[4], h)
  redis.call('HDEL', KEYS[5], h)
  if id and redis.call('HEXISTS', KEYS[3], id) == 1 then
    redis.call('RPUSH', KEYS[2], id)
  end
end
`

const requireChannel = `
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  return redis.error_reply('` + errNonExistentQueue + ` channel does not exist')
end
`

// ARGV: name, now, visibility deadline, count.
// Returns a flat list of id, handle, payload triples.
var receiveScript = redis.NewScript(requireChannel + requeueExpired + `
local out = {}
for i = 1, tonumber(ARGV[4]) do
  local id = redis.call('RPOP', KEYS[2])
  if not id then break end
  local payload = redis.call('HGET', KEYS[3], id)
  if payload then
    local h = id .. ':' .. redis.call('INCR', KEYS[6])
    redis.call('ZADD', KEYS[4], ARGV[3], h)
    redis.call('HSET', KEYS[5], h, id)
    table.insert(out, id)
    table.insert(out, h)
    table.insert(out, payload)
  end
end
return out
`)

// ARGV: name, now. Returns the number of visible messages.
var countScript = redis.NewScript(requireChannel + requeueExpired + `
return redis.call('LLEN', KEYS[2])
`)

// ARGV: name, then id, payload pairs. Returns the number of messages stored.
var sendScript = redis.NewScript(requireChannel + `
local n = 0
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[3], ARGV[i], ARGV[i + 1])
  redis.call('LPUSH', KEYS[2], ARGV[i])
  n = n + 1
end
return n
`)

// KEYS: message hash, in-flight zset, handle hash. ARGV: handles.
// Returns 1 or 0 per handle; stale handles are ignored.
var deleteScript = redis.NewScript(`
local out = {}
for i = 1, #ARGV do
  local id = redis.call('HGET', KEYS[3], ARGV[i])
  if id then
    redis.call('ZREM', KEYS[2], ARGV[i])
    redis.call('HDEL', KEYS[3], ARGV[i])
    redis.call('HDEL', KEYS[1], id)
    table.insert(out, 1)
  else
    table.insert(out, 0)
  end
end
return out
`)
