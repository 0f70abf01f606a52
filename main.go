package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goodslice/pizza-fulfillment/cmd/deliveryservice"
	"github.com/goodslice/pizza-fulfillment/cmd/kitchenworker"
	"github.com/goodslice/pizza-fulfillment/cmd/loyaltyworker"
	"github.com/goodslice/pizza-fulfillment/cmd/orderservice"
	"github.com/goodslice/pizza-fulfillment/internal/cli"
)

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}
	if mode == "" {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeOrders:
		fs := flag.NewFlagSet(cli.ModeOrders, flag.ContinueOnError)
		port := fs.Int("port", 3000, "HTTP port for the API")
		maxConc := fs.Int("max-concurrent", 50, "Maximum number of concurrent requests")
		cli.AttachUsage(fs, cli.ModeOrders)
		parseOrExit(fs, svcArgs)
		validatePort(fs, *port)
		if *maxConc <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be > 0")
			fs.Usage()
			os.Exit(2)
		}
		runOrExit(orderservice.Run(ctx, *port, *maxConc))

	case cli.ModeKitchen:
		fs := flag.NewFlagSet(cli.ModeKitchen, flag.ContinueOnError)
		port := fs.Int("port", 3001, "HTTP port for the staff API")
		kitchenID := fs.String("kitchen-id", "main", "Kitchen identifier stamped on stage events")
		cli.AttachUsage(fs, cli.ModeKitchen)
		parseOrExit(fs, svcArgs)
		validatePort(fs, *port)
		if *kitchenID == "" {
			fmt.Fprintln(os.Stderr, "Error: --kitchen-id must not be empty")
			fs.Usage()
			os.Exit(2)
		}
		runOrExit(kitchenworker.Run(ctx, *port, *kitchenID))

	case cli.ModeLoyalty:
		fs := flag.NewFlagSet(cli.ModeLoyalty, flag.ContinueOnError)
		port := fs.Int("port", 3002, "HTTP port for the API")
		cli.AttachUsage(fs, cli.ModeLoyalty)
		parseOrExit(fs, svcArgs)
		validatePort(fs, *port)
		runOrExit(loyaltyworker.Run(ctx, *port))

	case cli.ModeDelivery:
		fs := flag.NewFlagSet(cli.ModeDelivery, flag.ContinueOnError)
		port := fs.Int("port", 3003, "HTTP port for the dispatcher API")
		cli.AttachUsage(fs, cli.ModeDelivery)
		parseOrExit(fs, svcArgs)
		validatePort(fs, *port)
		runOrExit(deliveryservice.Run(ctx, *port))
	}
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func validatePort(fs *flag.FlagSet, port int) {
	if port <= 0 || port > 65535 {
		fmt.Fprintln(os.Stderr, "Error: --port must be between 1 and 65535")
		fs.Usage()
		os.Exit(2)
	}
}

func runOrExit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
