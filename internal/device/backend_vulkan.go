//go:build !nogpu

package device

// Import Vulkan backend so it registers via init().
import _ "github.com/gogpu/wgpu/hal/vulkan"
