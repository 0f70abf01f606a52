package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeOrders   = "orders-service"
	ModeKitchen  = "kitchen-worker"
	ModeLoyalty  = "loyalty-worker"
	ModeDelivery = "delivery-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeOrders, "orders", "order":
		return ModeOrders, true
	case ModeKitchen, "kitchen":
		return ModeKitchen, true
	case ModeLoyalty, "loyalty":
		return ModeLoyalty, true
	case ModeDelivery, "delivery":
		return ModeDelivery, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `orders-service --port=3001`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, nil
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./pizza-fulfillment --mode=<service> [flags]

Services (modes):
  orders-service     HTTP API for placing orders plus the consumers that keep
                     order status in step with the kitchen and delivery events
  kitchen-worker     Consumes confirmed orders and drives the prep pipeline
  loyalty-worker     Accrues points from completed orders, handles spends
  delivery-service   Registers deliverable orders and tracks driver hand-offs

Examples:
  ./pizza-fulfillment --mode=orders-service --port=3000
  ./pizza-fulfillment --mode=kitchen-worker --port=3001 --kitchen-id=main
  ./pizza-fulfillment --mode=loyalty-worker --port=3002
  ./pizza-fulfillment --mode=delivery-service --port=3003`)
}

func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./pizza-fulfillment --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
