// Command client is a thin front-end exercising the key-value surface:
// it dials a single bootstrap node and issues ClientPut/ClientGet/
// ClientDelete against it, letting that node's own locate-and-replicate
// logic handle routing and quorum. A rich administrative REPL is
// explicitly out of scope (spec); this is the minimal programmatic
// shim a human can drive interactively.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"chorddht/internal/dhterr"
	"chorddht/internal/ring"
	"chorddht/internal/rpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of the bootstrap node to contact")
	idBits := flag.Uint("id-bits", 160, "ring bit width, must match the target ring")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	space := ring.NewSpace(*idBits)

	peer, conn, err := dial(*addr, space)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	current := *addr

	fmt.Printf("chorddht client. connected to %s\n", current)
	fmt.Println("commands: put <key> <value> | get <key> | delete <key> | lookup <id> | use <addr> | exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("chord[%s]> ", current)
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		switch fields[0] {
		case "put":
			if len(fields) < 3 {
				fmt.Println("usage: put <key> <value>")
				break
			}
			start := time.Now()
			err := peer.ClientPut(ctx, fields[1], fields[2])
			report("put", err, time.Since(start))

		case "get":
			if len(fields) < 2 {
				fmt.Println("usage: get <key>")
				break
			}
			start := time.Now()
			value, found, err := peer.ClientGet(ctx, fields[1])
			switch {
			case err != nil:
				report("get", err, time.Since(start))
			case !found:
				report("get", dhterr.ErrNotFound, time.Since(start))
			default:
				fmt.Printf("get %s = %q (%s)\n", fields[1], value, time.Since(start))
			}

		case "delete":
			if len(fields) < 2 {
				fmt.Println("usage: delete <key>")
				break
			}
			start := time.Now()
			err := peer.ClientDelete(ctx, fields[1])
			report("delete", err, time.Since(start))

		case "lookup":
			if len(fields) < 2 {
				fmt.Println("usage: lookup <id>")
				break
			}
			id, err := space.FromString(fields[1])
			if err != nil {
				fmt.Println(err)
				break
			}
			start := time.Now()
			owner, err := peer.FindSuccessor(ctx, id)
			if err != nil {
				report("lookup", err, time.Since(start))
				break
			}
			fmt.Printf("lookup %s -> %s (%s) (%s)\n", id.String(), owner.ID.String(), owner.Address, time.Since(start))

		case "use":
			if len(fields) < 2 {
				fmt.Println("usage: use <addr>")
				break
			}
			newPeer, newConn, err := dial(fields[1], space)
			if err != nil {
				fmt.Printf("failed to connect to %s: %v\n", fields[1], err)
				break
			}
			conn.Close()
			peer, conn = newPeer, newConn
			current = fields[1]
			fmt.Printf("switched to %s\n", current)

		case "exit", "quit":
			cancel()
			return

		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
		cancel()
	}
}

func dial(addr string, space ring.Space) (*rpc.Peer, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return rpc.NewPeer(conn, addr, space), conn, nil
}

func report(op string, err error, elapsed time.Duration) {
	switch {
	case err == nil:
		fmt.Printf("%s succeeded (%s)\n", op, elapsed)
	case errors.Is(err, dhterr.ErrNotFound):
		fmt.Printf("%s: not found (%s)\n", op, elapsed)
	case errors.Is(err, dhterr.ErrQuorumFailed):
		fmt.Printf("%s: quorum not reached (%s)\n", op, elapsed)
	case errors.Is(err, dhterr.ErrUnavailable):
		fmt.Printf("%s: unavailable (%s)\n", op, elapsed)
	default:
		fmt.Printf("%s failed: %v (%s)\n", op, err, elapsed)
	}
}
