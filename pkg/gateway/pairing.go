package gateway

import (
	"io"
	"os"

	"github.com/mdp/qrterminal/v3"
)

// PairingRenderer shows a pairing challenge to the operator.
type PairingRenderer func(code string)

// TerminalQR draws the challenge as a half-block QR code on w (stdout when nil).
func TerminalQR(w io.Writer) PairingRenderer {
	if w == nil {
		w = os.Stdout
	}

	return func(code string) {
		if code == "" {
			return
		}
		qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
	}
}
