package machine

import (
	"io"

	"github.com/pkg/errors"
)

// MaxFirmwareSize is the largest firmware image the loader will accept, per
// spec.md §6: a flat binary of up to 65,535 bytes, byte i mapping to
// physical address i.
const MaxFirmwareSize = 65535

// LoadFirmware reads up to MaxFirmwareSize bytes from r (the platform file
// handle is an external collaborator — spec.md §1 treats it as an opaque
// byte provider) and returns them for the caller to seed into RAM at
// address 0. Short images are permitted; the caller leaves the remainder of
// RAM zeroed.
func LoadFirmware(r io.Reader) ([]byte, error) {
	buf := make([]byte, MaxFirmwareSize)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		return buf[:n], nil
	case err != nil:
		return nil, errors.Wrap(err, "reading firmware image")
	}
	return buf, nil
}
