// SPDX-License-Identifier: Unlicense OR MIT

//go:build !windows
// +build !windows

package main

import "log"

func main() {
	log.Fatal("offscreen requires Windows")
}
