//go:build tinygo || !cgo

package cesiumaux

import (
	"errors"

	"github.com/HapDragon/cesium"
	"github.com/HapDragon/cesium/glshader"
)

var errNoCGO = errors.New("GPU preview requires CGo and is not supported on TinyGo")

// CompileCheck requires CGo; this build always reports errNoCGO.
func CompileCheck(src glshader.Source) error {
	return errNoCGO
}

// PreviewPNG requires CGo; this build always reports errNoCGO.
func PreviewPNG(filename string, prim *cesium.Primitive, pipe *cesium.Pipeline, cfg PreviewConfig) error {
	return errNoCGO
}
