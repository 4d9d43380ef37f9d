// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// Login authenticates against the AMI server. If useMD5 is true, Login
// first issues a Challenge action, then proves knowledge of secret by
// hashing the returned challenge together with secret rather than sending
// secret in the clear. Otherwise it sends username and secret directly.
//
// Login returns true iff the final reply's Response field equals "Success".
func Login(ctx context.Context, c *Client, username, secret string, useMD5 bool) (bool, error) {
	if useMD5 {
		return loginMD5(ctx, c, username, secret)
	}

	reply, err := c.Publish(ctx, c.NewMessage(
		"Action", "Login",
		"Username", username,
		"Secret", secret,
	))
	if err != nil {
		return false, err
	}
	return reply.Get("Response") == "Success", nil
}

func loginMD5(ctx context.Context, c *Client, username, secret string) (bool, error) {
	challengeReply, err := c.Publish(ctx, c.NewMessage(
		"Action", "Challenge",
		"AuthType", "MD5",
	))
	if err != nil {
		return false, err
	}

	challenge := challengeReply.Get("Challenge")
	sum := md5.Sum([]byte(challenge + secret))
	key := hex.EncodeToString(sum[:])

	reply, err := c.Publish(ctx, c.NewMessage(
		"Action", "Login",
		"AuthType", "MD5",
		"Username", username,
		"Key", key,
	))
	if err != nil {
		return false, err
	}
	return reply.Get("Response") == "Success", nil
}

// Logoff issues a Logoff action and returns true iff the reply's Response
// field equals "Goodbye".
func Logoff(ctx context.Context, c *Client) (bool, error) {
	reply, err := c.Publish(ctx, c.NewMessage("Action", "Logoff"))
	if err != nil {
		return false, err
	}
	return reply.Get("Response") == "Goodbye", nil
}
