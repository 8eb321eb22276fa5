// SPDX-License-Identifier: Unlicense OR MIT

//go:build windows
// +build windows

// Command offscreen creates an offscreen shared surface, uploads a
// gradient through Direct3D, reads it back through OpenGL and writes the
// result to a PNG. It demonstrates the full texture-surface lifecycle
// without opening a window.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/servo/surfman"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	out := flag.String("o", "offscreen.png", "output PNG path")
	size := flag.Int("size", 256, "surface size in pixels")
	verbose := flag.Bool("v", false, "log device activity")
	flag.Parse()

	logger := logr.Discard()
	if *verbose {
		logger = funcr.New(func(prefix, args string) {
			log.Println(prefix, args)
		}, funcr.Options{Verbosity: 1})
	}

	device, err := surfman.NewDevice(surfman.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer device.Destroy()

	ctx, err := device.CreateContext(surfman.ContextAttributes{
		Version: surfman.GLVersion{Major: 3, Minor: 3},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.DestroyContext(ctx)

	surface, err := device.CreateSurface(ctx, surfman.SurfaceAccessGPUCPU,
		surfman.Generic{Size: image.Pt(*size, *size)})
	if err != nil {
		log.Fatal(err)
	}
	defer device.DestroySurface(ctx, surface)

	if err := device.WriteSurfaceData(surface, gradient(*size)); err != nil {
		log.Fatal(err)
	}
	img, err := device.CopySurfaceData(ctx, surface)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%dx%d, surface id %#x)", *out, *size, *size, uintptr(surface.ID()))
}

func gradient(size int) []byte {
	pix := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (y*size + x) * 4
			pix[i+0] = byte(x * 255 / (size - 1))
			pix[i+1] = byte(y * 255 / (size - 1))
			pix[i+2] = 0x80
			pix[i+3] = 0xff
		}
	}
	return pix
}
