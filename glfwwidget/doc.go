// SPDX-License-Identifier: Unlicense OR MIT

// Package glfwwidget adapts GLFW windows to native widgets, for programs
// that use GLFW for window and input management.
package glfwwidget
