package store

import (
	"time"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
)

// Records written by earlier versions of the game carry naive timestamps
// (no zone, microsecond precision). They are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func init() {
	jsoniter.RegisterTypeDecoderFunc("time.Time", decodeTimestamp)
}

func decodeTimestamp(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	if iter.WhatIsNext() == jsoniter.NilValue {
		iter.ReadNil()
		return
	}
	t, err := parseTimestamp(iter.ReadString())
	if err != nil {
		iter.ReportError("decode time", err.Error())
		return
	}
	*(*time.Time)(ptr) = t
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
