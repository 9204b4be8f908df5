// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package iochannel

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadLineAutodetectsTerminators(t *testing.T) {
	tr := &fakeTransport{in: []byte("lf\nclrf\r\ncr\rnul\x00tail"), inEOF: true}
	ch := New(tr, false)

	for _, want := range []string{"lf\n", "clrf\r\n", "cr\r", "nul\x00"} {
		line, status, err := ch.ReadLine()
		require.NoError(t, err)
		require.Equal(t, StatusNormal, status)
		require.Equal(t, want, string(line))
	}

	line, status, err := ch.ReadLine()
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "tail", string(line))

	_, status, err = ch.ReadLine()
	require.NoError(t, err)
	require.Equal(t, StatusEOF, status)
}

func TestReadLineDetectsParagraphSeparator(t *testing.T) {
	tr := &fakeTransport{in: append([]byte("para"), append(paragraphSeparator, "next"...)...), inEOF: true}
	ch := New(tr, false)

	line, status, err := ch.ReadLine()
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "para"+string(paragraphSeparator), string(line))
}

func TestReadLineDefersBareCRAtEndOfBuffer(t *testing.T) {
	// Not at EOF: a trailing CR must wait for a possible following LF.
	tr := &fakeTransport{in: []byte("abc\r")}
	ch := New(tr, false)

	_, status, err := ch.ReadLine()
	require.NoError(t, err)
	require.Equal(t, StatusAgain, status)

	// Once EOF is reached, the bare CR resolves as a terminator.
	tr.inEOF = true
	line, status, err := ch.ReadLine()
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "abc\r", string(line))
}

func TestReadToEndPartialUTF8AtEOFIsError(t *testing.T) {
	// 0xE2 0x82 is the first two bytes of a 3-byte sequence (e.g. '€' =
	// E2 82 AC), truncated.
	tr := &fakeTransport{in: []byte{'o', 'k', 0xE2, 0x82}, inEOF: true}
	ch := New(tr, false)

	_, status, err := ch.ReadToEnd()
	require.Equal(t, StatusError, status)
	require.Error(t, err)

	var ioErr *Error
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, CodePartialInput, ioErr.Code)
}

func TestReadCharsOnIllegalByteSequenceIsError(t *testing.T) {
	// 0xFF never begins a valid UTF-8 sequence.
	tr := &fakeTransport{in: []byte{'o', 'k', 0xFF, 'x'}, inEOF: true}
	ch := New(tr, false)

	data, status, err := ch.ReadChars(64)
	require.NoError(t, err) // the valid "ok" prefix is still returned first
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "ok", string(data))

	_, status, err = ch.ReadChars(64)
	require.Equal(t, StatusError, status)
	var ioErr *Error
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, CodeIllegalSequence, ioErr.Code)
}

func TestReadCharsReturnsCompleteMultibyteCharacter(t *testing.T) {
	euroUTF8 := []byte{0xE2, 0x82, 0xAC} // '€'
	tr := &fakeTransport{in: append([]byte("ok"), euroUTF8...), inEOF: true}
	ch := New(tr, false)

	data, status, err := ch.ReadChars(64)
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "ok€", string(data))
}

func TestWriteFlushDeliversToTransport(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)

	n, status, err := ch.Write([]byte("hello, world"))
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, 12, n)

	status, err = ch.Flush()
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, "hello, world", string(tr.out))
}

func TestWriteStashesTrailingPartialUTF8(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)

	euroUTF8 := []byte{0xE2, 0x82, 0xAC}
	n, status, err := ch.Write(append([]byte("ok"), euroUTF8[:2]...))
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, 4, n) // all bytes "consumed" — the partial tail is stashed, not dropped

	ch.Flush()
	require.Equal(t, "ok", string(tr.out))

	ch.Write(euroUTF8[2:])
	ch.Flush()
	require.Equal(t, "ok€", string(tr.out))
}

func TestBufferSizeClampsToMaxCharSize(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)
	ch.SetBufferSize(1)
	require.Equal(t, MaxCharSize, ch.BufferSize())
}

func TestSetEncodingPreconditions(t *testing.T) {
	tr := &fakeTransport{in: []byte("x")}
	ch := New(tr, false)

	// Freshly created: switch is allowed.
	require.NoError(t, ch.SetEncoding(""))

	ch.ReadChars(1)
	// Buffers are empty again after consuming the one pending byte, and
	// the current encoding is null, so another switch is still allowed.
	require.NoError(t, ch.SetEncoding("UTF-8"))
}

func TestRefUnrefClosesOnlyWhenCloseOnUnref(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)
	require.False(t, ch.CloseOnUnref())

	ch.Ref()
	ch.Unref()
	require.False(t, tr.closed) // one ref remains

	ch.Unref()
	require.False(t, tr.closed) // default CloseOnUnref is false

	ch2 := New(&fakeTransport{}, false)
	ch2.SetCloseOnUnref(true)
	require.True(t, ch2.CloseOnUnref())
	tr2 := ch2.Transport().(*fakeTransport)
	ch2.Unref()
	require.True(t, tr2.closed)
}

func TestSeekPositionRejectsNonSeekableChannel(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)

	_, status, err := ch.SeekPosition(0, io.SeekStart)
	require.Equal(t, StatusError, status)
	var ioErr *Error
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, CodeInval, ioErr.Code)
}

func TestSeekPositionFlushesAndDiscardsBuffers(t *testing.T) {
	tr := &fakeTransport{in: []byte("abcdef"), inEOF: true}
	ch := New(tr, true)

	n, status, err := ch.Write([]byte("pending"))
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, 7, n)

	_, status, err = ch.ReadChars(2) // buffers some decoded input too
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)

	pos, status, err := ch.SeekPosition(10, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, StatusNormal, status)
	require.Equal(t, int64(10), pos)
	require.Equal(t, "pending", string(tr.out)) // flushed before the seek

	// Buffered input is discarded, and EOF/pending-read state resets, so
	// a later SetEncoding on the same channel would be permitted again.
	require.NoError(t, ch.SetEncoding(""))
}

func TestSetGetFlagsDelegateToTransport(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)

	require.NoError(t, ch.SetFlags(FlagNonblock))
	require.Equal(t, FlagNonblock, ch.GetFlags())
}

func TestSetBufferedRequiresEmptyBuffersAndNullEncoding(t *testing.T) {
	tr := &fakeTransport{}
	ch := New(tr, false)
	require.Error(t, ch.SetBuffered(false)) // UTF-8 default encoding

	require.NoError(t, ch.SetEncoding(""))
	require.NoError(t, ch.SetBuffered(false))
}
