// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package iochannel

import (
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// MaxCharSize bounds the longest encoded representation of a single
// character any supported encoding can produce, sizing
// partialWriteBuf and the buf-size/flush-threshold margin on the write
// path.
const MaxCharSize = 6

// codec holds the resolved state for Channel.SetEncoding: either the
// null (raw/binary) encoding, the built-in UTF-8 fast path, or a pair of
// golang.org/x/text converters for anything else IANA can name.
type codec struct {
	name    string
	isNull  bool
	isUTF8  bool
	decoder transform.Transformer
	encoder transform.Transformer
}

func nullCodec() codec { return codec{isNull: true} }

func utf8Codec() codec { return codec{name: "UTF-8", isUTF8: true} }

func resolveCodec(name string) (codec, error) {
	if name == "" {
		return nullCodec(), nil
	}
	if strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return utf8Codec(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return codec{}, newError(CodeConversionFailed, "unknown encoding "+name, err)
	}
	return codec{
		name:    name,
		decoder: enc.NewDecoder(),
		encoder: enc.NewEncoder(),
	}, nil
}
