package decode

import (
	"encoding/json"

	"go.uber.org/zap"
)

// FlatJSON extracts the record array out of one large JSON document that
// may, depending on the source, be shaped three different ways:
//
//  1. a bare array:            [ {...}, {...} ]
//  2. a keyed array:           { "<key>": [ {...} ] }
//  3. a singly nested wrapper: { "<outer>": { "<key>": [ {...} ] } }
//
// Each candidate key is tried in order against shapes 2 and 3; the first
// match wins. An unrecognized document yields an empty slice and a logged
// warning, never an error: the caller treats "no records" as a decoded
// truth, and upstream shape drift is an operator concern, not a crash.
func FlatJSON(logger *zap.Logger, data []byte, keys ...string) []json.RawMessage {
	var bare []json.RawMessage
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("Flat JSON document is neither array nor object", zap.Error(err))
		return nil
	}

	for _, key := range keys {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr
		}
		// Shape 3: the key holds a wrapper object carrying the array one
		// level down, under any of the candidate keys.
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			continue
		}
		for _, innerKey := range keys {
			innerRaw, ok := inner[innerKey]
			if !ok {
				continue
			}
			if err := json.Unmarshal(innerRaw, &arr); err == nil {
				return arr
			}
		}
	}

	logger.Warn("Flat JSON document matched no known shape",
		zap.Strings("tried_keys", keys))
	return nil
}
