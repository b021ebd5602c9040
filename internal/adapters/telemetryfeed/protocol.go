// Package telemetryfeed is a client for the Substrate telemetry feed: it
// subscribes to one chain over a websocket and keeps a node table up to
// date from the feed's action stream.
package telemetryfeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

type Action int

const (
	ActionFeedVersion      Action = 0
	ActionBestBlock        Action = 1
	ActionBestFinalized    Action = 2
	ActionAddedNode        Action = 3
	ActionRemovedNode      Action = 4
	ActionLocatedNode      Action = 5
	ActionImportedBlock    Action = 6
	ActionFinalizedBlock   Action = 7
	ActionNodeStats        Action = 8
	ActionNodeHardware     Action = 9
	ActionTimeSync         Action = 10
	ActionAddedChain       Action = 11
	ActionRemovedChain     Action = 12
	ActionSubscribedTo     Action = 13
	ActionUnsubscribedFrom Action = 14
	ActionPong             Action = 15
	ActionStaleNode        Action = 20
	ActionNodeIOUpdate     Action = 21
)

type Message struct {
	Action  Action
	Payload json.RawMessage
}

var ErrMalformedFrame = errors.New("malformed feed frame")

// DecodeMessages splits one feed frame, a flat array of
// [action, payload, action, payload, ...], into messages.
func DecodeMessages(frame []byte) ([]Message, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(frame, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("%w: odd item count %d", ErrMalformedFrame, len(items))
	}

	msgs := make([]Message, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		action := asInt(items[i])
		if action == nil {
			return nil, fmt.Errorf("%w: action %s is not an integer", ErrMalformedFrame, items[i])
		}
		msgs = append(msgs, Message{Action: Action(*action), Payload: items[i+1]})
	}

	return msgs, nil
}

// Subscribe builds the command that selects a chain by genesis hash.
func Subscribe(genesisHash string) []byte {
	return []byte("subscribe:" + genesisHash)
}

// Decoding helpers. Each returns nil (or false) when the raw value is
// absent, null, or of an unexpected shape.

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func at(arr []json.RawMessage, i int) json.RawMessage {
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

func asNumber(raw json.RawMessage) (json.Number, bool) {
	if isNull(raw) {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

func asInt(raw json.RawMessage) *int64 {
	n, ok := asNumber(raw)
	if !ok {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return &i
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	i := int64(f)
	return &i
}

func asFloat(raw json.RawMessage) *float64 {
	n, ok := asNumber(raw)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func asString(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func asBool(raw json.RawMessage) *bool {
	if isNull(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}

// asText accepts a string or a number and returns its textual form.
func asText(raw json.RawMessage) *string {
	if s := asString(raw); s != nil {
		return s
	}
	if n, ok := asNumber(raw); ok {
		s := n.String()
		return &s
	}
	if b := asBool(raw); b != nil {
		s := strconv.FormatBool(*b)
		return &s
	}
	return nil
}

// asSeries decodes an array of numbers. Any non-numeric element makes the
// whole series unusable.
func asSeries(raw json.RawMessage) []float64 {
	arr, ok := asArray(raw)
	if !ok {
		return nil
	}
	series := make([]float64, 0, len(arr))
	for _, item := range arr {
		f := asFloat(item)
		if f == nil {
			return nil
		}
		series = append(series, *f)
	}
	return series
}
