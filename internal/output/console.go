package output

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Console prints one line per created component for the operator.
type Console struct {
	w io.Writer
}

// NewConsole writes to w, or to stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Deployed prints one line per registered contract.
func (c *Console) Deployed(name string, address common.Address) {
	fmt.Fprintf(c.w, "Deployed %s at %s\n", name, address.Hex())
}
