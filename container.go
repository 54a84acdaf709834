package lotledger

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// Magic identifies the archive format and its version epoch 1.
const Magic = "PPPBV1"

// PayloadEntry is the name of the container entry holding the client snapshot.
const PayloadEntry = "data.portfolio"

// zipSignature starts every ZIP local file header.
var zipSignature = []byte("PK\x03\x04")

// OpenArchive validates an archive and returns its payload entry: the magic
// header followed by the encoded client message.
//
// data is either a ZIP container holding PayloadEntry (other entries are
// ignored) or the payload entry itself. It never touches the filesystem and
// enforces no size limit; callers reading files own that policy.
func OpenArchive(data []byte) ([]byte, error) {
	entry, name, err := extractPayload(data)
	if err != nil {
		return nil, err
	}
	if len(entry) < len(Magic) || !bytes.Equal(entry[:len(Magic)], []byte(Magic)) {
		n := min(len(entry), len(Magic))
		return nil, &FormatError{Kind: BadMagic, Offset: 0, Entry: name,
			Err: fmt.Errorf("header %q, want %q", entry[:n], Magic)}
	}
	return entry, nil
}

// extractPayload returns the payload entry and its name ("" when data is not a container).
func extractPayload(data []byte) ([]byte, string, error) {
	if !bytes.HasPrefix(data, zipSignature) {
		return data, "", nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", &FormatError{Kind: MalformedMessage, Offset: -1, Err: fmt.Errorf("invalid container: %w", err)}
	}
	for _, f := range zr.File {
		if f.Name != PayloadEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", &FormatError{Kind: MalformedMessage, Offset: -1, Entry: f.Name, Err: err}
		}
		defer rc.Close()
		entry, err := io.ReadAll(rc)
		if err != nil {
			return nil, "", &FormatError{Kind: MalformedMessage, Offset: -1, Entry: f.Name, Err: err}
		}
		return entry, f.Name, nil
	}
	return nil, "", &FormatError{Kind: MissingPayload, Offset: -1, Err: fmt.Errorf("no %q entry among %d", PayloadEntry, len(zr.File))}
}
