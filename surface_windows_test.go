// SPDX-License-Identifier: Unlicense OR MIT

package surfman

import (
	"errors"
	"image"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/servo/surfman/internal/win32"
)

func newTestDevice(t *testing.T) (*Device, *Context) {
	t.Helper()
	runtime.LockOSThread()
	d, err := NewDevice()
	if err != nil {
		t.Skipf("no GPU device available: %v", err)
	}
	ctx, err := d.CreateContext(ContextAttributes{
		Version: GLVersion{Major: 3, Minor: 3},
		Flags:   ContextAttributeDepth | ContextAttributeStencil,
	})
	if err != nil {
		d.Destroy()
		t.Skipf("no GL context available: %v", err)
	}
	t.Cleanup(func() {
		d.DestroyContext(ctx)
		d.Destroy()
		runtime.UnlockOSThread()
	})
	return d, ctx
}

func newTestSurface(t *testing.T, d *Device, ctx *Context, size image.Point) *Surface {
	t.Helper()
	s, err := d.CreateSurface(ctx, SurfaceAccessGPUCPU, Generic{Size: size})
	if errors.Is(err, ErrRequiredExtensionUnavailable) {
		t.Skipf("GL/DX interop unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	return s
}

func TestCreateDestroySurfaceSizes(t *testing.T) {
	d, ctx := newTestDevice(t)
	for _, size := range []image.Point{
		image.Pt(1, 1),
		image.Pt(256, 256),
		image.Pt(31, 47),
		image.Pt(1024, 3),
	} {
		s := newTestSurface(t, d, ctx, size)
		if got := s.Size(); got != size {
			t.Errorf("Size() = %v, want %v", got, size)
		}
		if got := s.ContextID(); got != ctx.ID() {
			t.Errorf("ContextID() = %v, want %v", got, ctx.ID())
		}
		if s.ID() == 0 {
			t.Error("surface has zero ID")
		}
		if d.Framebuffer(s) == 0 {
			t.Error("texture surface has no framebuffer")
		}
		if err := d.DestroySurface(ctx, s); err != nil {
			t.Fatalf("DestroySurface: %v", err)
		}
	}
}

func TestSurfaceIDsDistinct(t *testing.T) {
	d, ctx := newTestDevice(t)
	a := newTestSurface(t, d, ctx, image.Pt(64, 64))
	b := newTestSurface(t, d, ctx, image.Pt(64, 64))
	if a.ID() == b.ID() {
		t.Errorf("live surfaces share ID %#x", uintptr(a.ID()))
	}
	d.DestroySurface(ctx, b)
	d.DestroySurface(ctx, a)
}

func TestDestroySurfaceTwice(t *testing.T) {
	d, ctx := newTestDevice(t)
	s := newTestSurface(t, d, ctx, image.Pt(16, 16))
	if err := d.DestroySurface(ctx, s); err != nil {
		t.Fatalf("DestroySurface: %v", err)
	}
	if err := d.DestroySurface(ctx, s); err != nil {
		t.Errorf("second DestroySurface: %v", err)
	}
}

func TestDestroySurfaceWrongContext(t *testing.T) {
	d, ctx := newTestDevice(t)
	other, err := d.CreateContext(ContextAttributes{Version: GLVersion{Major: 3, Minor: 3}})
	if err != nil {
		t.Skipf("no second context: %v", err)
	}
	defer d.DestroyContext(other)

	s := newTestSurface(t, d, ctx, image.Pt(16, 16))
	if err := d.DestroySurface(other, s); !errors.Is(err, ErrIncompatibleSurface) {
		t.Fatalf("DestroySurface from foreign context = %v, want ErrIncompatibleSurface", err)
	}
	// The surface is marked destroyed; destroying it again is a no-op.
	if err := d.DestroySurface(ctx, s); err != nil {
		t.Errorf("DestroySurface after leak: %v", err)
	}
}

func TestSurfaceTextureRoundTrip(t *testing.T) {
	d, ctx := newTestDevice(t)
	consumer, err := d.CreateContext(ContextAttributes{Version: GLVersion{Major: 3, Minor: 3}})
	if err != nil {
		t.Skipf("no second context: %v", err)
	}
	defer d.DestroyContext(consumer)

	s := newTestSurface(t, d, ctx, image.Pt(128, 32))
	id, size, contextID := s.ID(), s.Size(), s.ContextID()

	st, err := d.CreateSurfaceTexture(consumer, s)
	if err != nil {
		t.Fatalf("CreateSurfaceTexture: %v", err)
	}
	if st.GLTexture() == 0 {
		t.Error("surface texture has no GL texture")
	}
	if st.Surface() != s {
		t.Error("Surface() does not return the wrapped surface")
	}

	back, err := d.DestroySurfaceTexture(consumer, st)
	if err != nil {
		t.Fatalf("DestroySurfaceTexture: %v", err)
	}
	if back.ID() != id || back.Size() != size || back.ContextID() != contextID {
		t.Errorf("surface changed identity: got (%v, %v, %v), want (%v, %v, %v)",
			back.ID(), back.Size(), back.ContextID(), id, size, contextID)
	}
	if err := d.DestroySurface(ctx, back); err != nil {
		t.Fatalf("DestroySurface: %v", err)
	}
}

func TestLockUnlockSurface(t *testing.T) {
	d, ctx := newTestDevice(t)
	s := newTestSurface(t, d, ctx, image.Pt(32, 32))
	defer d.DestroySurface(ctx, s)

	restore, err := d.temporarilyMakeContextCurrent(ctx)
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	defer restore()

	// Two cycles; the lock must be reacquirable after release.
	for i := 0; i < 2; i++ {
		d.LockSurface(s)
		d.UnlockSurface(s)
	}
}

func TestWriteThenCopySurfaceData(t *testing.T) {
	d, ctx := newTestDevice(t)
	size := image.Pt(64, 48)
	s := newTestSurface(t, d, ctx, size)
	defer d.DestroySurface(ctx, s)

	want := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			i := y*want.Stride + x*4
			want.Pix[i+0] = byte(x)
			want.Pix[i+1] = byte(y)
			want.Pix[i+2] = byte(x ^ y)
			want.Pix[i+3] = 0xff
		}
	}
	if err := d.WriteSurfaceData(s, want.Pix); err != nil {
		t.Fatalf("WriteSurfaceData: %v", err)
	}
	got, err := d.CopySurfaceData(ctx, s)
	if err != nil {
		t.Fatalf("CopySurfaceData: %v", err)
	}
	if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSurfaceDataBadLength(t *testing.T) {
	d, ctx := newTestDevice(t)
	s := newTestSurface(t, d, ctx, image.Pt(8, 8))
	defer d.DestroySurface(ctx, s)
	if err := d.WriteSurfaceData(s, make([]byte, 8)); err == nil {
		t.Error("short pixel buffer accepted")
	}
}

func TestPresentTextureSurface(t *testing.T) {
	d, ctx := newTestDevice(t)
	s := newTestSurface(t, d, ctx, image.Pt(8, 8))
	defer d.DestroySurface(ctx, s)
	if err := d.PresentSurface(s); !errors.Is(err, ErrNoWidgetAttached) {
		t.Errorf("PresentSurface on texture surface = %v, want ErrNoWidgetAttached", err)
	}
	if _, err := d.CopySurfaceData(ctx, s); err != nil {
		t.Errorf("CopySurfaceData: %v", err)
	}
}

func TestWidgetSurface(t *testing.T) {
	d, ctx := newTestDevice(t)
	hwnd, hdc, err := createHiddenWindow()
	if err != nil {
		t.Fatalf("creating window: %v", err)
	}
	win32.ReleaseDC(hwnd, hdc)
	defer win32.DestroyWindow(hwnd)

	s, err := d.CreateSurface(ctx, SurfaceAccessGPUOnly, Widget{Widget: NativeWidget{Window: hwnd}})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if s.ID() != SurfaceID(hwnd) {
		t.Errorf("widget surface ID = %#x, want window handle %#x", uintptr(s.ID()), hwnd)
	}
	if d.Framebuffer(s) != 0 {
		t.Error("widget surface reports a framebuffer")
	}

	if _, err := d.CopySurfaceData(ctx, s); !errors.Is(err, ErrWidgetAttached) {
		t.Errorf("CopySurfaceData on widget surface = %v, want ErrWidgetAttached", err)
	}

	// Locks are no-ops for widget surfaces.
	d.LockSurface(s)
	d.UnlockSurface(s)

	if err := d.MakeContextCurrentWithSurface(ctx, s); err != nil {
		t.Errorf("MakeContextCurrentWithSurface: %v", err)
	}
	if err := d.PresentSurface(s); err != nil {
		t.Errorf("PresentSurface: %v", err)
	}
	d.MakeNoContextCurrent()

	if err := d.DestroySurface(ctx, s); err != nil {
		t.Fatalf("DestroySurface: %v", err)
	}
}

func TestCreateSurfaceTextureOnWidgetSurface(t *testing.T) {
	d, ctx := newTestDevice(t)
	hwnd, hdc, err := createHiddenWindow()
	if err != nil {
		t.Fatalf("creating window: %v", err)
	}
	win32.ReleaseDC(hwnd, hdc)
	defer win32.DestroyWindow(hwnd)

	s, err := d.CreateSurface(ctx, SurfaceAccessGPUOnly, Widget{Widget: NativeWidget{Window: hwnd}})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	// The call consumes the surface: it comes back marked destroyed and a
	// later DestroySurface is a no-op.
	if _, err := d.CreateSurfaceTexture(ctx, s); !errors.Is(err, ErrWidgetAttached) {
		t.Errorf("CreateSurfaceTexture on widget surface = %v, want ErrWidgetAttached", err)
	}
	if err := d.DestroySurface(ctx, s); err != nil {
		t.Errorf("DestroySurface after consumed surface: %v", err)
	}
}

func TestCreateWidgetSurfaceInvalidWindow(t *testing.T) {
	d, ctx := newTestDevice(t)
	_, err := d.CreateSurface(ctx, SurfaceAccessGPUOnly, Widget{Widget: NativeWidget{Window: 0}})
	if !errors.Is(err, ErrInvalidNativeWidget) {
		t.Errorf("CreateSurface with nil window = %v, want ErrInvalidNativeWidget", err)
	}
}

func TestLeakedSurfaceTripsGuard(t *testing.T) {
	d, ctx := newTestDevice(t)

	leaked := make(chan SurfaceID, 1)
	prev := leakHandler
	leakHandler = func(id SurfaceID) {
		select {
		case leaked <- id:
		default:
		}
	}
	defer func() { leakHandler = prev }()

	s := newTestSurface(t, d, ctx, image.Pt(4, 4))
	id := s.ID()
	s = nil
	_ = s

	deadline := time.After(5 * time.Second)
	for {
		runtime.GC()
		select {
		case got := <-leaked:
			if got != id {
				t.Errorf("leak reported surface %#x, want %#x", uintptr(got), uintptr(id))
			}
			return
		case <-deadline:
			t.Fatal("leaked surface never reported")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestContextAttributesPreserved(t *testing.T) {
	d, _ := newTestDevice(t)
	attrs := ContextAttributes{
		Version: GLVersion{Major: 3, Minor: 3},
		Flags:   ContextAttributeAlpha | ContextAttributeDepth,
	}
	ctx, err := d.CreateContext(attrs)
	if err != nil {
		t.Skipf("no context: %v", err)
	}
	defer d.DestroyContext(ctx)
	if got := ctx.Attributes(); got != attrs {
		t.Errorf("Attributes() = %+v, want %+v", got, attrs)
	}
	if ctx.ID() == 0 {
		t.Error("context has zero ID")
	}
}

func TestContextIDsDistinct(t *testing.T) {
	d, ctx := newTestDevice(t)
	other, err := d.CreateContext(ContextAttributes{Version: GLVersion{Major: 3, Minor: 3}})
	if err != nil {
		t.Skipf("no second context: %v", err)
	}
	defer d.DestroyContext(other)
	if ctx.ID() == other.ID() {
		t.Errorf("contexts share ID %d", ctx.ID())
	}
}
