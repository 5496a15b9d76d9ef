package analyzer

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
)

// maxInflated caps decompressed payload size
const maxInflated = 16 << 20

type payload struct {
	text       string
	compressed bool
}

// decodePayload extracts and decodes a base64 payload carried by command.
// ok is false when there is no payload or it cannot be decoded.
func (a *Analyzer) decodePayload(command string) (payload, bool) {
	encoded := a.extractPayload(command)
	if encoded == "" {
		return payload{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Debug("Payload is not base64: %v", err)
		return payload{}, false
	}

	p := a.reg.Patterns()
	if isGzip(raw) || p.CompressedStream.MatchString(command) {
		text, err := inflate(raw)
		if err != nil {
			logger.Debug("Payload decompression failed: %v", err)
			return payload{}, false
		}
		return payload{text: text, compressed: true}, true
	}

	return payload{text: decodeText(raw)}, true
}

func (a *Analyzer) extractPayload(command string) string {
	p := a.reg.Patterns()
	switch {
	case p.EncodedCommand.MatchString(command):
		rest := p.EncodedFlag.ReplaceAllString(command, "")
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return ""
		}
		return strings.Trim(fields[0], `'"`)
	case p.Base64Call.MatchString(command):
		rest := p.Base64CallPrefix.ReplaceAllString(command, "")
		return strings.TrimSpace(p.QuoteTail.ReplaceAllString(rest, ""))
	}
	return ""
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// inflate decompresses a gzip stream, or a raw deflate stream when the
// gzip header is absent.
func inflate(raw []byte) (string, error) {
	var r io.Reader
	if isGzip(raw) {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return "", err
		}
		defer zr.Close()
		r = zr
	} else {
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		r = fr
	}

	out, err := io.ReadAll(io.LimitReader(r, maxInflated))
	if err != nil {
		return "", err
	}
	return decodeText(out), nil
}

// decodeText interprets decoded bytes as text. PowerShell encodes
// -EncodedCommand payloads as UTF-16LE.
func decodeText(b []byte) string {
	if looksUTF16LE(b) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(b), "�")
}

func looksUTF16LE(b []byte) bool {
	if len(b) < 2 || len(b)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 1; i < len(b); i += 2 {
		if b[i] == 0 {
			zeros++
		}
	}
	return zeros*2 >= len(b)/2
}
