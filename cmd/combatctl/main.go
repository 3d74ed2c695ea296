// Package main is a command-line client for combat.v1.CombatService.
//
// Usage:
//
//	combatctl -account 100 -character 1 Engage spawn_id=1000001
//	combatctl -account 100 -character 1 Status
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cory-johannsen/mudcombat/internal/gameserver"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50061", "combat service address")
	account := flag.Int64("account", 0, "account id sent as "+gameserver.AccountHeader)
	character := flag.Int64("character", 0, "character id")
	timeout := flag.Duration("timeout", 5*time.Second, "call timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: combatctl [flags] <method> [key=value...]\nmethods: %s\n",
			strings.Join(gameserver.Methods(), ", "))
		os.Exit(2)
	}
	args, err := parseArgs(flag.Args()[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	args["character_id"] = *character

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dialing %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	out, err := gameserver.NewClient(conn, *account).Call(ctx, flag.Arg(0), args)
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
	fmt.Println(protojson.MarshalOptions{Multiline: true}.Format(out))
}

// parseArgs turns key=value pairs into request fields. Numbers and booleans
// are typed; everything else is a string.
func parseArgs(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs)+1)
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = n
		} else if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
		} else {
			out[k] = v
		}
	}
	return out, nil
}
