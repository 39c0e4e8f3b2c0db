//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

//go:embed shaders/adjust.wgsl
var adjustShaderWGSL string

// Kernel geometry. Must match @workgroup_size in adjust.wgsl.
const (
	workgroupSize = 16
	kernelEntry   = "main"
)

// Binding slots of the adjustment kernel.
const (
	bindingParams = iota
	bindingInput
	bindingLUTMaster
	bindingLUTRed
	bindingLUTGreen
	bindingLUTBlue
	bindingOutput

	bindingCount
)

var compileKernelOnce = sync.OnceValues(func() ([]uint32, error) {
	return compileWGSL(adjustShaderWGSL)
})

// compileKernel returns the SPIR-V words of the adjustment kernel.
// The result is compiled once per process.
func compileKernel() ([]uint32, error) {
	return compileKernelOnce()
}

// compileWGSL compiles WGSL source to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile adjust shader: %w", err)
	}
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile adjust shader: SPIR-V length %d is not a whole number of words", len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// workgroups returns the dispatch size covering a w x h output.
func workgroups(w, h int) (uint32, uint32) {
	return uint32((w + workgroupSize - 1) / workgroupSize), //nolint:gosec // output dimensions are positive
		uint32((h + workgroupSize - 1) / workgroupSize) //nolint:gosec // output dimensions are positive
}
