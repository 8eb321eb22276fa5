// SPDX-License-Identifier: Unlicense OR MIT

// Package d3d11 exposes the Direct3D 11 device and texture plumbing needed
// for cross-API shared allocations: texture creation with sharing flags,
// DXGI share handle retrieval and re-opening a shared allocation on another
// device.
package d3d11

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

type Device struct {
	Vtbl *struct {
		_IUnknownVTbl
		CreateBuffer                         uintptr
		CreateTexture1D                      uintptr
		CreateTexture2D                      uintptr
		CreateTexture3D                      uintptr
		CreateShaderResourceView             uintptr
		CreateUnorderedAccessView            uintptr
		CreateRenderTargetView               uintptr
		CreateDepthStencilView               uintptr
		CreateInputLayout                    uintptr
		CreateVertexShader                   uintptr
		CreateGeometryShader                 uintptr
		CreateGeometryShaderWithStreamOutput uintptr
		CreatePixelShader                    uintptr
		CreateHullShader                     uintptr
		CreateDomainShader                   uintptr
		CreateComputeShader                  uintptr
		CreateClassLinkage                   uintptr
		CreateBlendState                     uintptr
		CreateDepthStencilState              uintptr
		CreateRasterizerState                uintptr
		CreateSamplerState                   uintptr
		CreateQuery                          uintptr
		CreatePredicate                      uintptr
		CreateCounter                        uintptr
		CreateDeferredContext                uintptr
		OpenSharedResource                   uintptr
		CheckFormatSupport                   uintptr
		CheckMultisampleQualityLevels        uintptr
		CheckCounterInfo                     uintptr
		CheckCounter                         uintptr
		CheckFeatureSupport                  uintptr
		GetPrivateData                       uintptr
		SetPrivateData                       uintptr
		SetPrivateDataInterface              uintptr
		GetDeviceRemovedReason               uintptr
		GetImmediateContext                  uintptr
		SetExceptionMode                     uintptr
		GetExceptionMode                     uintptr
	}
}

type DeviceContext struct {
	Vtbl *struct {
		_IUnknownVTbl
		GetDevice                                 uintptr
		GetPrivateData                            uintptr
		SetPrivateData                            uintptr
		SetPrivateDataInterface                   uintptr
		VSSetConstantBuffers                      uintptr
		PSSetShaderResources                      uintptr
		PSSetShader                               uintptr
		PSSetSamplers                             uintptr
		VSSetShader                               uintptr
		DrawIndexed                               uintptr
		Draw                                      uintptr
		Map                                       uintptr
		Unmap                                     uintptr
		PSSetConstantBuffers                      uintptr
		IASetInputLayout                          uintptr
		IASetVertexBuffers                        uintptr
		IASetIndexBuffer                          uintptr
		DrawIndexedInstanced                      uintptr
		DrawInstanced                             uintptr
		GSSetConstantBuffers                      uintptr
		GSSetShader                               uintptr
		IASetPrimitiveTopology                    uintptr
		VSSetShaderResources                      uintptr
		VSSetSamplers                             uintptr
		Begin                                     uintptr
		End                                       uintptr
		GetData                                   uintptr
		SetPredication                            uintptr
		GSSetShaderResources                      uintptr
		GSSetSamplers                             uintptr
		OMSetRenderTargets                        uintptr
		OMSetRenderTargetsAndUnorderedAccessViews uintptr
		OMSetBlendState                           uintptr
		OMSetDepthStencilState                    uintptr
		SOSetTargets                              uintptr
		DrawAuto                                  uintptr
		DrawIndexedInstancedIndirect              uintptr
		DrawInstancedIndirect                     uintptr
		Dispatch                                  uintptr
		DispatchIndirect                          uintptr
		RSSetState                                uintptr
		RSSetViewports                            uintptr
		RSSetScissorRects                         uintptr
		CopySubresourceRegion                     uintptr
		CopyResource                              uintptr
		UpdateSubresource                         uintptr
		CopyStructureCount                        uintptr
		ClearRenderTargetView                     uintptr
		ClearUnorderedAccessViewUint              uintptr
		ClearUnorderedAccessViewFloat             uintptr
		ClearDepthStencilView                     uintptr
		GenerateMips                              uintptr
		SetResourceMinLOD                         uintptr
		GetResourceMinLOD                         uintptr
		ResolveSubresource                        uintptr
		ExecuteCommandList                        uintptr
		HSSetShaderResources                      uintptr
		HSSetShader                               uintptr
		HSSetSamplers                             uintptr
		HSSetConstantBuffers                      uintptr
		DSSetShaderResources                      uintptr
		DSSetShader                               uintptr
		DSSetSamplers                             uintptr
		DSSetConstantBuffers                      uintptr
		CSSetShaderResources                      uintptr
		CSSetUnorderedAccessViews                 uintptr
		CSSetShader                               uintptr
		CSSetSamplers                             uintptr
		CSSetConstantBuffers                      uintptr
		VSGetConstantBuffers                      uintptr
		PSGetShaderResources                      uintptr
		PSGetShader                               uintptr
		PSGetSamplers                             uintptr
		VSGetShader                               uintptr
		PSGetConstantBuffers                      uintptr
		IAGetInputLayout                          uintptr
		IAGetVertexBuffers                        uintptr
		IAGetIndexBuffer                          uintptr
		GSGetConstantBuffers                      uintptr
		GSGetShader                               uintptr
		IAGetPrimitiveTopology                    uintptr
		VSGetShaderResources                      uintptr
		VSGetSamplers                             uintptr
		GetPredication                            uintptr
		GSGetShaderResources                      uintptr
		GSGetSamplers                             uintptr
		OMGetRenderTargets                        uintptr
		OMGetRenderTargetsAndUnorderedAccessViews uintptr
		OMGetBlendState                           uintptr
		OMGetDepthStencilState                    uintptr
		SOGetTargets                              uintptr
		RSGetState                                uintptr
		RSGetViewports                            uintptr
		RSGetScissorRects                         uintptr
		HSGetShaderResources                      uintptr
		HSGetShader                               uintptr
		HSGetSamplers                             uintptr
		HSGetConstantBuffers                      uintptr
		DSGetShaderResources                      uintptr
		DSGetShader                               uintptr
		DSGetSamplers                             uintptr
		DSGetConstantBuffers                      uintptr
		CSGetShaderResources                      uintptr
		CSGetUnorderedAccessViews                 uintptr
		CSGetShader                               uintptr
		CSGetSamplers                             uintptr
		CSGetConstantBuffers                      uintptr
		ClearState                                uintptr
		Flush                                     uintptr
		GetType                                   uintptr
		GetContextFlags                           uintptr
		FinishCommandList                         uintptr
	}
}

type Texture2D struct {
	Vtbl *struct {
		_IUnknownVTbl
		GetDevice               uintptr
		GetPrivateData          uintptr
		SetPrivateData          uintptr
		SetPrivateDataInterface uintptr
		GetType                 uintptr
		SetEvictionPriority     uintptr
		GetEvictionPriority     uintptr
		GetDesc                 uintptr
	}
}

type DXGIResource struct {
	Vtbl *struct {
		_IUnknownVTbl
		SetPrivateData          uintptr
		SetPrivateDataInterface uintptr
		GetPrivateData          uintptr
		GetParent               uintptr
		GetDevice               uintptr
		GetSharedHandle         uintptr
		GetUsage                uintptr
		SetEvictionPriority     uintptr
		GetEvictionPriority     uintptr
	}
}

type _IUnknownVTbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

// TEXTURE2D_DESC matches D3D11_TEXTURE2D_DESC.
type TEXTURE2D_DESC struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     SAMPLE_DESC
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// SAMPLE_DESC matches DXGI_SAMPLE_DESC.
type SAMPLE_DESC struct {
	Count   uint32
	Quality uint32
}

const (
	DRIVER_TYPE_HARDWARE = 1

	SDK_VERSION = 7

	USAGE_DEFAULT = 0

	BIND_SHADER_RESOURCE = 0x8
	BIND_RENDER_TARGET   = 0x20

	RESOURCE_MISC_SHARED_KEYEDMUTEX = 0x10

	FORMAT_R8G8B8A8_UNORM = 28

	DXGI_STATUS_OCCLUDED      = 0x087A0001
	DXGI_ERROR_DEVICE_REMOVED = 0x887A0005
	DXGI_ERROR_DEVICE_RESET   = 0x887A0007
	D3DDDIERR_DEVICEREMOVED   = 0x88760870

	E_FAIL    = 0x80004005
	E_POINTER = 0x80004003
)

var (
	IID_ID3D11Texture2D = windows.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
	IID_IDXGIResource   = windows.GUID{Data1: 0x035f3ab4, Data2: 0x482e, Data3: 0x4e50, Data4: [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
)

var (
	d3d11 = windows.NewLazySystemDLL("d3d11.dll")

	_D3D11CreateDevice = d3d11.NewProc("D3D11CreateDevice")
)

// ErrorCode is a COM HRESULT together with the operation that produced it.
type ErrorCode struct {
	Name string
	Code uint32
}

func (e ErrorCode) Error() string {
	return fmt.Sprintf("%s: %#x", e.Name, e.Code)
}

// CreateDevice creates a Direct3D 11 device and its immediate context.
func CreateDevice(driverType, flags uint32) (*Device, *DeviceContext, uint32, error) {
	var (
		dev     *Device
		ctx     *DeviceContext
		featLvl uint32
	)
	r, _, _ := _D3D11CreateDevice.Call(
		0, // pAdapter
		uintptr(driverType),
		0, // Software
		uintptr(flags),
		0, // pFeatureLevels
		0, // FeatureLevels
		SDK_VERSION,
		uintptr(unsafe.Pointer(&dev)),
		uintptr(unsafe.Pointer(&featLvl)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if r != 0 {
		return nil, nil, 0, ErrorCode{Name: "D3D11CreateDevice", Code: uint32(r)}
	}
	return dev, ctx, featLvl, nil
}

// CreateTexture2D allocates a texture on the device.
func (d *Device) CreateTexture2D(desc *TEXTURE2D_DESC) (*Texture2D, error) {
	var tex *Texture2D
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateTexture2D, 4,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(desc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&tex)),
		0, 0,
	)
	if r != 0 {
		return nil, ErrorCode{Name: "ID3D11Device::CreateTexture2D", Code: uint32(r)}
	}
	return tex, nil
}

// OpenSharedResource opens the allocation behind a DXGI share handle as a
// texture on this device.
func (d *Device) OpenSharedResource(shareHandle windows.Handle) (*Texture2D, error) {
	var tex *Texture2D
	r, _, _ := syscall.Syscall6(
		d.Vtbl.OpenSharedResource, 4,
		uintptr(unsafe.Pointer(d)),
		uintptr(shareHandle),
		uintptr(unsafe.Pointer(&IID_ID3D11Texture2D)),
		uintptr(unsafe.Pointer(&tex)),
		0, 0,
	)
	if r != 0 {
		return nil, ErrorCode{Name: "ID3D11Device::OpenSharedResource", Code: uint32(r)}
	}
	if tex == nil {
		return nil, ErrorCode{Name: "ID3D11Device::OpenSharedResource", Code: uint32(E_POINTER)}
	}
	return tex, nil
}

// SharedHandle retrieves the DXGI share handle identifying the texture's
// allocation across devices and APIs.
func (t *Texture2D) SharedHandle() (windows.Handle, error) {
	var res *DXGIResource
	r, _, _ := syscall.Syscall(
		t.Vtbl.QueryInterface, 3,
		uintptr(unsafe.Pointer(t)),
		uintptr(unsafe.Pointer(&IID_IDXGIResource)),
		uintptr(unsafe.Pointer(&res)),
	)
	if r != 0 {
		return 0, ErrorCode{Name: "ID3D11Texture2D::QueryInterface(IDXGIResource)", Code: uint32(r)}
	}
	defer IUnknownRelease(unsafe.Pointer(res), res.Vtbl.Release)
	var handle windows.Handle
	r, _, _ = syscall.Syscall(
		res.Vtbl.GetSharedHandle, 2,
		uintptr(unsafe.Pointer(res)),
		uintptr(unsafe.Pointer(&handle)),
		0,
	)
	if r != 0 {
		return 0, ErrorCode{Name: "IDXGIResource::GetSharedHandle", Code: uint32(r)}
	}
	if handle == 0 || handle == windows.InvalidHandle {
		return 0, ErrorCode{Name: "IDXGIResource::GetSharedHandle", Code: uint32(E_FAIL)}
	}
	return handle, nil
}

// GetDesc returns the texture description.
func (t *Texture2D) GetDesc() TEXTURE2D_DESC {
	var desc TEXTURE2D_DESC
	syscall.Syscall(
		t.Vtbl.GetDesc, 2,
		uintptr(unsafe.Pointer(t)),
		uintptr(unsafe.Pointer(&desc)),
		0,
	)
	return desc
}

// UpdateSubresource copies data from memory into the first subresource of
// tex.
func (c *DeviceContext) UpdateSubresource(tex *Texture2D, rowPitch uint32, data []byte) {
	syscall.Syscall9(
		c.Vtbl.UpdateSubresource, 7,
		uintptr(unsafe.Pointer(c)),
		uintptr(unsafe.Pointer(tex)),
		0, // DstSubresource
		0, // pDstBox
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(rowPitch),
		0, // SrcDepthPitch
		0, 0,
	)
}

// Flush submits queued commands to the hardware.
func (c *DeviceContext) Flush() {
	syscall.Syscall(c.Vtbl.Flush, 1, uintptr(unsafe.Pointer(c)), 0, 0)
}

func IUnknownRelease(obj unsafe.Pointer, releaseMethod uintptr) {
	syscall.Syscall(
		releaseMethod,
		1,
		uintptr(obj),
		0,
		0,
	)
}
