// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command amiping dials an Asterisk AMI endpoint, logs in, subscribes to
// the event stream, and prints events until interrupted. It exists to
// exercise Dial, Login, and Subscribe end to end; it is not part of the
// library's public contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"code.hybscloud.com/ami"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5038", "AMI address")
	username := flag.String("user", "", "AMI username")
	secret := flag.String("secret", "", "AMI secret")
	md5auth := flag.Bool("md5", false, "use MD5 challenge-response login")
	flag.Parse()

	if err := run(*addr, *username, *secret, *md5auth); err != nil {
		fmt.Fprintln(os.Stderr, "amiping:", err)
		os.Exit(1)
	}
}

func run(addr, username, secret string, md5auth bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ami.Dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	ok, err := ami.Login(ctx, client, username, secret, md5auth)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !ok {
		return fmt.Errorf("login rejected")
	}
	fmt.Println("amiping: logged in")

	sub := client.Subscribe()
	defer sub.Close()

	for {
		select {
		case msg, ok := <-sub.Events():
			if !ok {
				return sub.Err()
			}
			fmt.Printf("event: %s (ActionID=%s)\n", msg.Get("Event"), msg.ActionID())
		case <-ctx.Done():
			return nil
		}
	}
}
