// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package iochannel

import (
	"io"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/transform"

	"github.com/cmoretti/gomainloop/gmain"
)

const defaultBufSize = 4096

var paragraphSeparator = []byte{0xE2, 0x80, 0xA9} // U+2029 in UTF-8

// Channel is a buffered, encoding-aware wrapper around a Transport (§4.9
// "I/O channel state machine").
type Channel struct {
	refs atomic.Int32

	transport Transport
	seekable  bool

	mu sync.Mutex

	bufSize      int
	buffered     bool
	codec        codec
	lineTerm     []byte // nil: autodetect
	closeOnUnref bool

	readBuf        []byte
	encodedReadBuf []byte
	readEOF        bool

	writeBuf        []byte
	partialWriteBuf []byte

	pendingRead bool // unconsumed decoded or raw bytes exist from a read, gating encoding switches on seekable channels
}

// New wraps transport in a Channel with UTF-8 encoding, default
// buffering, and autodetected line termination. The returned channel
// starts with a reference count of one and CloseOnUnref false, matching
// GLib's default.
func New(transport Transport, seekable bool) *Channel {
	ch := &Channel{
		transport: transport,
		seekable:  seekable,
		bufSize:   defaultBufSize,
		buffered:  true,
		codec:     utf8Codec(),
	}
	ch.refs.Store(1)
	return ch
}

// Ref increments the channel's reference count and returns ch, so calls
// can be chained as ch = ch.Ref().
func (ch *Channel) Ref() *Channel {
	ch.refs.Add(1)
	return ch
}

// Unref decrements the reference count. When it reaches zero and
// CloseOnUnref is set, the underlying transport is closed.
func (ch *Channel) Unref() {
	if ch.refs.Add(-1) != 0 {
		return
	}
	ch.mu.Lock()
	closeOnUnref := ch.closeOnUnref
	ch.mu.Unlock()
	if closeOnUnref {
		_ = ch.transport.Close()
	}
}

// SetCloseOnUnref controls whether the final Unref also closes the
// underlying transport. The default is false.
func (ch *Channel) SetCloseOnUnref(do bool) {
	ch.mu.Lock()
	ch.closeOnUnref = do
	ch.mu.Unlock()
}

// CloseOnUnref reports the current close-on-unref setting.
func (ch *Channel) CloseOnUnref() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closeOnUnref
}

// SetFlags applies transport-level flags such as non-blocking mode.
func (ch *Channel) SetFlags(flags Flags) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.transport.SetFlags(flags)
}

// GetFlags reports the transport's current flags.
func (ch *Channel) GetFlags() Flags {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.transport.GetFlags()
}

// SeekPosition repositions a seekable channel, flushing any pending
// output and discarding buffered input first. Non-seekable channels
// report an Invalid-argument error. whence follows io.Seeker
// (io.SeekStart, io.SeekCurrent, io.SeekEnd); for io.SeekCurrent the
// offset is adjusted for data already buffered for reading, so the
// result reflects the logical stream position rather than the
// transport's underlying position.
func (ch *Channel) SeekPosition(offset int64, whence int) (int64, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.seekable {
		return 0, StatusError, newError(CodeInval, "trying to seek a non-seekable channel", nil)
	}
	if whence == io.SeekCurrent {
		offset -= int64(len(ch.readBuf) + len(ch.encodedReadBuf))
	}
	if status, err := ch.flushLocked(); status == StatusError {
		return 0, status, err
	}
	ch.readBuf = ch.readBuf[:0]
	ch.encodedReadBuf = ch.encodedReadBuf[:0]
	ch.readEOF = false
	ch.pendingRead = false
	pos, err := ch.transport.Seek(offset, whence)
	if err != nil {
		return 0, StatusError, err
	}
	return pos, StatusNormal, nil
}

// SetBufferSize sets the size of the internal read/write buffers,
// clamped up to at least MaxCharSize so a single character can always
// make progress.
func (ch *Channel) SetBufferSize(n int) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if n < MaxCharSize {
		n = MaxCharSize
	}
	ch.bufSize = n
}

// BufferSize returns the current buffer size.
func (ch *Channel) BufferSize() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.bufSize
}

// SetBuffered enables or disables buffering. Disabling is only permitted
// when both buffers are empty and the encoding is null.
func (ch *Channel) SetBuffered(on bool) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !on {
		if !ch.codec.isNull || len(ch.readBuf) > 0 || len(ch.encodedReadBuf) > 0 || len(ch.writeBuf) > 0 {
			return newError(CodeInval, "cannot disable buffering with pending data or a non-null encoding", nil)
		}
	}
	ch.buffered = on
	return nil
}

// SetLineTerm sets an explicit line terminator; pass nil to restore
// autodetection (LF, CRLF, CR, NUL, or U+2029).
func (ch *Channel) SetLineTerm(term []byte) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.lineTerm = term
}

// SetEncoding switches the channel's text encoding. name == "" selects
// the null encoding (raw/binary, no validation or conversion);
// "UTF-8" selects the built-in fast path; anything else is resolved via
// IANA's encoding registry. Switching is permitted when the read and
// write buffers are all empty and the current encoding is null or UTF-8,
// when they are all empty and no read data is pending (a fresh channel,
// or one after a flushing seek), or once the transport has reported EOF.
// It is refused in every other state: buffered output blocks a switch
// even on a channel that is only written to, and an AGAIN or ERROR result
// from ReadChars or ReadUnichar does not by itself permit one.
func (ch *Channel) SetEncoding(name string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.canSwitchEncodingLocked() {
		return newError(CodeInval, "encoding switch not permitted in the current channel state", nil)
	}
	c, err := resolveCodec(name)
	if err != nil {
		return err
	}
	ch.codec = c
	ch.pendingRead = false
	return nil
}

func (ch *Channel) canSwitchEncodingLocked() bool {
	buffersEmpty := len(ch.readBuf) == 0 && len(ch.encodedReadBuf) == 0 && len(ch.writeBuf) == 0
	if buffersEmpty && (ch.codec.isNull || ch.codec.isUTF8) {
		return true
	}
	if buffersEmpty && !ch.pendingRead {
		return true
	}
	return ch.readEOF
}

// Encoding returns the current encoding's name: "" for null, "UTF-8" for
// the built-in UTF-8 codec (the initial encoding, whichever spelling
// selected it), otherwise the name passed to SetEncoding.
func (ch *Channel) Encoding() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.codec.name
}

// fillLocked reads more raw bytes from the transport into readBuf, up to
// bufSize total, then decodes as much as possible into encodedReadBuf.
// It returns the status of the underlying Read (Normal/EOF/Again/Error);
// it returns Normal (without reading) if readBuf already holds bufSize
// bytes.
func (ch *Channel) fillLocked() (Status, error) {
	if len(ch.readBuf) >= ch.bufSize {
		return StatusNormal, nil
	}
	tmp := make([]byte, ch.bufSize-len(ch.readBuf))
	n, status, err := ch.transport.Read(tmp)
	if n > 0 {
		ch.readBuf = append(ch.readBuf, tmp[:n]...)
		ch.pendingRead = true
	}
	if status == StatusEOF {
		ch.readEOF = true
	}
	before := len(ch.encodedReadBuf)
	if decStatus, decErr := ch.decodeLocked(); decStatus == StatusError {
		if len(ch.encodedReadBuf) > before {
			// Valid characters were decoded before the invalid/
			// incomplete tail was hit; report them now and defer the
			// error to the next call, where no further progress is
			// made and the offending bytes are seen immediately —
			// matching GLib's g_io_channel_read_chars.
			return StatusNormal, nil
		}
		return StatusError, decErr
	}
	if status == StatusError {
		return StatusError, err
	}
	return status, nil
}

// decodeLocked moves the longest complete-character prefix of readBuf
// into encodedReadBuf, leaving any trailing partial character in
// readBuf for the next fill. It distinguishes a genuinely incomplete
// trailing sequence (wait for more bytes, or at EOF left for
// ReadToEnd's trailing-bytes check) from a conclusively invalid one,
// which it reports as a CodeIllegalSequence error without consuming the
// offending bytes.
func (ch *Channel) decodeLocked() (Status, error) {
	switch {
	case ch.codec.isNull:
		ch.encodedReadBuf = append(ch.encodedReadBuf, ch.readBuf...)
		ch.readBuf = ch.readBuf[:0]
		return StatusNormal, nil
	case ch.codec.isUTF8:
		// FullRune reports false only while the prefix could still
		// become a longer valid encoding with more bytes, whether or
		// not we are at EOF, which is why a trailing incomplete
		// sequence naturally stays behind in readBuf. Once it reports
		// true, DecodeRune either yields a real rune or, for bytes
		// that can never be valid UTF-8, a width-1 error rune — the
		// latter is the conclusively-invalid case.
		i := 0
		for i < len(ch.readBuf) {
			if !utf8.FullRune(ch.readBuf[i:]) {
				break
			}
			r, size := utf8.DecodeRune(ch.readBuf[i:])
			if r == utf8.RuneError && size == 1 {
				ch.encodedReadBuf = append(ch.encodedReadBuf, ch.readBuf[:i]...)
				ch.readBuf = ch.readBuf[i:]
				return StatusError, newError(CodeIllegalSequence, "invalid UTF-8 byte sequence", nil)
			}
			i += size
		}
		ch.encodedReadBuf = append(ch.encodedReadBuf, ch.readBuf[:i]...)
		ch.readBuf = ch.readBuf[i:]
		return StatusNormal, nil
	default:
		dst := make([]byte, len(ch.readBuf)*4+16)
		for {
			nDst, nSrc, err := ch.codec.decoder.Transform(dst, ch.readBuf, ch.readEOF)
			if nDst > 0 {
				ch.encodedReadBuf = append(ch.encodedReadBuf, dst[:nDst]...)
			}
			if nSrc > 0 {
				ch.readBuf = ch.readBuf[nSrc:]
			}
			switch err {
			case nil:
				return StatusNormal, nil
			case transform.ErrShortSrc:
				// Incomplete trailing sequence: wait for more bytes,
				// or at EOF leave it for ReadToEnd to report as
				// partial input.
				return StatusNormal, nil
			case transform.ErrShortDst:
				dst = make([]byte, len(dst)*2)
				continue
			default:
				return StatusError, newError(CodeIllegalSequence, "invalid byte sequence for encoding "+ch.codec.name, err)
			}
		}
	}
}

// ReadChars returns up to n decoded bytes, reading from the transport as
// needed. On a non-null encoding the result is character-aligned: it is
// cut back to the last complete character, so it may hold fewer than n
// bytes, or none when n is shorter than the next character.
func (ch *Channel) ReadChars(n int) ([]byte, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for len(ch.encodedReadBuf) == 0 && !ch.readEOF {
		status, err := ch.fillLocked()
		if status == StatusAgain || status == StatusError {
			return nil, status, err
		}
	}
	if len(ch.encodedReadBuf) == 0 {
		return nil, StatusEOF, nil
	}
	if n > len(ch.encodedReadBuf) {
		n = len(ch.encodedReadBuf)
	}
	if !ch.codec.isNull {
		for n > 0 && n < len(ch.encodedReadBuf) && !utf8.RuneStart(ch.encodedReadBuf[n]) {
			n--
		}
	}
	out := append([]byte(nil), ch.encodedReadBuf[:n]...)
	ch.encodedReadBuf = ch.encodedReadBuf[n:]
	return out, StatusNormal, nil
}

// ReadUnichar decodes and consumes one UTF-8 code point from the
// decoded buffer.
func (ch *Channel) ReadUnichar() (rune, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for len(ch.encodedReadBuf) == 0 && !ch.readEOF {
		status, err := ch.fillLocked()
		if status == StatusAgain || status == StatusError {
			return 0, status, err
		}
	}
	if len(ch.encodedReadBuf) == 0 {
		return 0, StatusEOF, nil
	}
	r, size := utf8.DecodeRune(ch.encodedReadBuf)
	ch.encodedReadBuf = ch.encodedReadBuf[size:]
	return r, StatusNormal, nil
}

// findTerminator reports the end offset (inclusive of the terminator)
// of the first recognized line terminator in buf, or -1 if none is
// found yet. CR at the very end of buf is ambiguous (could be the start
// of a CRLF) and is reported as not-found unless atEOF.
func findTerminator(buf, explicit []byte, atEOF bool) int {
	if explicit != nil {
		if i := indexBytes(buf, explicit); i >= 0 {
			return i + len(explicit)
		}
		return -1
	}
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case '\n', 0:
			return i + 1
		case '\r':
			if i+1 < len(buf) {
				if buf[i+1] == '\n' {
					return i + 2
				}
				return i + 1
			}
			if atEOF {
				return i + 1
			}
			return -1
		}
		if i+2 < len(buf) && matchesAt(buf, i, paragraphSeparator) {
			return i + len(paragraphSeparator)
		}
	}
	return -1
}

func matchesAt(buf []byte, i int, needle []byte) bool {
	if i+len(needle) > len(buf) {
		return false
	}
	for j, b := range needle {
		if buf[i+j] != b {
			return false
		}
	}
	return true
}

func indexBytes(buf, needle []byte) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(buf); i++ {
		if matchesAt(buf, i, needle) {
			return i
		}
	}
	return -1
}

// ReadLine returns the decoded bytes up to and including the first
// recognized line terminator, or the remaining buffered data at EOF.
func (ch *Channel) ReadLine() ([]byte, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for {
		if end := findTerminator(ch.encodedReadBuf, ch.lineTerm, ch.readEOF); end >= 0 {
			out := append([]byte(nil), ch.encodedReadBuf[:end]...)
			ch.encodedReadBuf = ch.encodedReadBuf[end:]
			return out, StatusNormal, nil
		}
		if ch.readEOF {
			if len(ch.encodedReadBuf) == 0 {
				return nil, StatusEOF, nil
			}
			out := append([]byte(nil), ch.encodedReadBuf...)
			ch.encodedReadBuf = ch.encodedReadBuf[:0]
			return out, StatusNormal, nil
		}
		status, err := ch.fillLocked()
		if status == StatusAgain || status == StatusError {
			return nil, status, err
		}
	}
}

// ReadLineString is ReadLine, appending the line to *dst instead of
// returning it.
func (ch *Channel) ReadLineString(dst *[]byte) (Status, error) {
	line, status, err := ch.ReadLine()
	if status == StatusNormal {
		*dst = append(*dst, line...)
	}
	return status, err
}

// ReadToEnd drains the channel until EOF. On a non-null encoding, a
// trailing partial character left in readBuf at EOF is reported as an
// error.
func (ch *Channel) ReadToEnd() ([]byte, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for !ch.readEOF {
		status, err := ch.fillLocked()
		if status == StatusAgain || status == StatusError {
			return nil, status, err
		}
	}
	if !ch.codec.isNull && len(ch.readBuf) > 0 {
		return nil, StatusError, newError(CodePartialInput, "trailing partial character at EOF", nil)
	}
	out := append([]byte(nil), ch.encodedReadBuf...)
	ch.encodedReadBuf = ch.encodedReadBuf[:0]
	return out, StatusNormal, nil
}

// Write appends p (always UTF-8 per contract, regardless of the
// channel's configured encoding) to the channel, converting or
// validating as needed, flushing opportunistically, and returning the
// number of bytes of p consumed.
func (ch *Channel) Write(p []byte) (int, Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if len(ch.partialWriteBuf) > 0 {
		p = append(append([]byte(nil), ch.partialWriteBuf...), p...)
		ch.partialWriteBuf = ch.partialWriteBuf[:0]
	}

	consumed := len(p)
	switch {
	case ch.codec.isNull:
		ch.writeBuf = append(ch.writeBuf, p...)
	case ch.codec.isUTF8:
		i := validUTF8Prefix(p)
		if !utf8.Valid(p[:i]) {
			return 0, StatusError, newError(CodeIllegalSequence, "invalid UTF-8 byte sequence", nil)
		}
		if i < len(p) && len(p)-i <= MaxCharSize {
			ch.partialWriteBuf = append(ch.partialWriteBuf, p[i:]...)
			consumed = len(p)
			p = p[:i]
		}
		ch.writeBuf = append(ch.writeBuf, p...)
	default:
		if i := validUTF8Prefix(p); i < len(p) && len(p)-i <= MaxCharSize {
			ch.partialWriteBuf = append(ch.partialWriteBuf, p[i:]...)
			p = p[:i]
		}
		dst := make([]byte, len(p)*4+16)
		nDst, nSrc, err := ch.codec.encoder.Transform(dst, p, true)
		ch.writeBuf = append(ch.writeBuf, dst[:nDst]...)
		switch err {
		case nil:
		case transform.ErrShortSrc:
			// Incomplete trailing UTF-8 character in p; stash it and
			// wait for the rest on the next Write.
			if len(p)-nSrc <= MaxCharSize {
				ch.partialWriteBuf = append(ch.partialWriteBuf, p[nSrc:]...)
			}
		default:
			// A character p contains has no representation in the
			// channel's encoding.
			return 0, StatusError, newError(CodeConversionFailed, "cannot encode to "+ch.codec.name, err)
		}
	}

	if len(ch.writeBuf) >= ch.bufSize-MaxCharSize {
		if status, err := ch.flushLocked(); status == StatusError {
			return 0, status, err
		}
	}
	return consumed, StatusNormal, nil
}

func validUTF8Prefix(p []byte) int {
	i := 0
	for i < len(p) {
		if !utf8.FullRune(p[i:]) {
			break
		}
		_, size := utf8.DecodeRune(p[i:])
		i += size
	}
	return i
}

// Flush writes buffered output until the buffer is empty or the
// transport reports AGAIN/ERROR.
func (ch *Channel) Flush() (Status, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.flushLocked()
}

func (ch *Channel) flushLocked() (Status, error) {
	for len(ch.writeBuf) > 0 {
		n, status, err := ch.transport.Write(ch.writeBuf)
		if n > 0 {
			ch.writeBuf = ch.writeBuf[n:]
		}
		if status == StatusAgain || status == StatusError {
			return status, err
		}
	}
	return StatusNormal, nil
}

// Shutdown optionally flushes, then closes the transport. Flush errors
// are ignored when flush is false.
func (ch *Channel) Shutdown(flush bool) error {
	ch.mu.Lock()
	var flushErr error
	if flush {
		if status, err := ch.flushLocked(); status == StatusError {
			flushErr = err
		}
	}
	ch.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}
	return ch.transport.Close()
}

// bufferCondition reports CondIn if decoded data is available to read
// and CondOut if there is room in the write buffer.
func (ch *Channel) bufferCondition() Condition {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	var cond Condition
	if len(ch.encodedReadBuf) > 0 {
		cond |= CondIn
	}
	if len(ch.writeBuf) < ch.bufSize {
		cond |= CondOut
	}
	return cond
}

// CreateWatch returns a source ready whenever the OR of the transport's
// fd condition and the channel's buffer condition intersects cond.
func (ch *Channel) CreateWatch(cond Condition) *gmain.Source {
	transportSrc := ch.transport.CreateWatch(cond)
	var watch *gmain.Source
	watch = gmain.NewSource(&gmain.SourceFuncs{
		Prepare: func(*gmain.Source) (bool, int) {
			if ch.bufferCondition()&cond != 0 {
				return true, 0
			}
			return false, -1
		},
		Check: func(*gmain.Source) bool {
			return ch.bufferCondition()&cond != 0
		},
		Dispatch: func(_ *gmain.Source, cb gmain.SourceFunc, data any) bool {
			if cb == nil {
				return true
			}
			return cb(data)
		},
	})
	watch.SetName("iochannel.watch")
	_ = watch.AddChildSource(transportSrc)
	return watch
}

// Transport returns the underlying Transport.
func (ch *Channel) Transport() Transport { return ch.transport }
