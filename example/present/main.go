// SPDX-License-Identifier: Unlicense OR MIT

//go:build windows
// +build windows

// Command present opens a GLFW window and drives a widget-backed surface
// attached to it, swapping buffers until the window closes.
package main

import (
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/servo/surfman"
	"github.com/servo/surfman/glfwwidget"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := glfw.Init(); err != nil {
		log.Fatal(err)
	}
	defer glfw.Terminate()

	// The device owns context creation; GLFW only provides the window.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(640, 480, "present", nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer window.Destroy()

	device, err := surfman.NewDevice()
	if err != nil {
		log.Fatal(err)
	}
	defer device.Destroy()

	ctx, err := device.CreateContext(surfman.ContextAttributes{
		Version: surfman.GLVersion{Major: 3, Minor: 3},
		Flags:   surfman.ContextAttributeDepth,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.DestroyContext(ctx)

	surface, err := device.CreateSurface(ctx, surfman.SurfaceAccessGPUOnly, glfwwidget.Widget(window))
	if err != nil {
		log.Fatal(err)
	}
	defer device.DestroySurface(ctx, surface)
	log.Printf("widget surface %#x, %v", uintptr(surface.ID()), surface.Size())

	for !window.ShouldClose() {
		if err := device.PresentSurface(surface); err != nil {
			log.Fatal(err)
		}
		glfw.PollEvents()
	}
}
