package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

/** @brief The loaded API entry point plus the window surface it renders to. */
type instance struct {
	handle  vk.Instance
	surface vk.Surface
	debug   vk.DebugReportCallback
}

func instanceExtensions(surface graphics.VulkanSurface, debug bool) []string {
	extensions := append([]string{}, surface.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func hasLayer(name string) (bool, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, layers), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	for i := range layers {
		layers[i].Deref()
		if cString(layers[i].LayerName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

func newInstance(appName string, surface graphics.VulkanSurface, debug bool) (*instance, error) {
	procAddr := surface.InstanceProcAddr()
	if procAddr == nil {
		return nil, fmt.Errorf("%w: surface has no vkGetInstanceProcAddr", graphics.ErrUnsupportedDevice)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", graphics.ErrUnsupportedDevice, err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism"),
	}
	extensions := instanceExtensions(surface, debug)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if debug {
		ok, err := hasLayer(validationLayer)
		if err != nil {
			return nil, err
		}
		if ok {
			layers = append(layers, validationLayer)
		} else {
			core.LogWarn("validation layer %s is missing, continuing without it", validationLayer)
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	inst := &instance{}
	if err := check(vk.CreateInstance(&createInfo, nil, &inst.handle), "vkCreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(inst.handle); err != nil {
		vk.DestroyInstance(inst.handle, nil)
		return nil, fmt.Errorf("%w: %v", graphics.ErrNative, err)
	}
	core.LogDebug("vulkan instance created with %d extensions", len(extensions))

	if debug {
		debugInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReport,
		}
		if err := check(vk.CreateDebugReportCallback(inst.handle, &debugInfo, nil, &inst.debug), "vkCreateDebugReportCallback"); err != nil {
			inst.destroy()
			return nil, err
		}
	}

	handle, err := surface.CreateWindowSurface(inst.handle)
	if err != nil {
		inst.destroy()
		return nil, fmt.Errorf("%w: window surface: %v", graphics.ErrNative, err)
	}
	inst.surface = vk.SurfaceFromPointer(handle)
	return inst, nil
}

func (inst *instance) destroy() {
	if inst.surface != vk.NullSurface {
		vk.DestroySurface(inst.handle, inst.surface, nil)
		inst.surface = vk.NullSurface
	}
	if inst.debug != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(inst.handle, inst.debug, nil)
		inst.debug = vk.NullDebugReportCallback
	}
	if inst.handle != nil {
		vk.DestroyInstance(inst.handle, nil)
		inst.handle = nil
	}
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("performance: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
