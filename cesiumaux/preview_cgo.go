//go:build !tinygo && cgo

package cesiumaux

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"golang.org/x/image/draw"

	"github.com/HapDragon/cesium"
	"github.com/HapDragon/cesium/glshader"
)

// CompileCheck compiles the composed program against a throwaway 1x1
// offscreen context and reports the driver's verdict. Compile errors are
// returned with a line-numbered listing of both stages so the message's
// line references can be followed. The caller must have the OS thread
// locked (runtime.LockOSThread) as GLFW requires.
func CompileCheck(src glshader.Source) error {
	_, terminate, err := startOffscreen(1, 1)
	if err != nil {
		return err
	}
	defer terminate()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   src.Vertex + "\x00",
		Fragment: src.Fragment + "\x00",
	})
	if err != nil {
		return fmt.Errorf("vertex:\n%s\nfragment:\n%s\n%w",
			numberedSource(src.Vertex), numberedSource(src.Fragment), err)
	}
	prog.Delete()
	return nil
}

// PreviewPNG runs pipe over prim, renders one frame offscreen with the
// composed program and writes it to a PNG file with said filename. The
// caller must have the OS thread locked (runtime.LockOSThread).
func PreviewPNG(filename string, prim *cesium.Primitive, pipe *cesium.Pipeline, cfg PreviewConfig) error {
	cfg = cfg.withDefaults()
	rr := cesium.NewRenderResources(cfg.Diag)
	src, err := pipe.BuildSource(rr, prim)
	if err != nil {
		return err
	}
	count := prim.DrawCount()
	if count == 0 {
		return errors.New("primitive has no vertex data to draw")
	}

	window, terminate, err := startOffscreen(cfg.Width*cfg.Supersample, cfg.Height*cfg.Supersample)
	if err != nil {
		return err
	}
	defer terminate()
	frameW, frameH := window.GetFramebufferSize()

	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   src.Vertex + "\x00",
		Fragment: src.Fragment + "\x00",
	})
	if err != nil {
		return fmt.Errorf("vertex:\n%s\nfragment:\n%s\n%w",
			numberedSource(src.Vertex), numberedSource(src.Fragment), err)
	}
	prog.Bind()
	defer prog.Delete()

	if err := uploadAttributes(prog, prim); err != nil {
		return err
	}
	if err := setMatrixUniforms(prog, cfg); err != nil {
		return err
	}
	if err := uploadUniforms(prog, rr.UniformMap); err != nil {
		return err
	}

	gl.Viewport(0, 0, int32(frameW), int32(frameH))
	gl.ClearColor(cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], cfg.ClearColor[3])
	gl.Enable(gl.DEPTH_TEST)
	if !prim.Material.DoubleSided {
		gl.Enable(gl.CULL_FACE)
	}
	if rr.AlphaOptions.Pass == cesium.PassTranslucent {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
	mode := uint32(gl.TRIANGLES)
	if cfg.DrawPoints {
		mode = gl.POINTS
		gl.Enable(gl.PROGRAM_POINT_SIZE)
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.DrawArrays(mode, 0, int32(count))
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("drawing primitive: %w", err)
	}

	// Resample to the requested size. This folds the supersampled frame
	// down and also absorbs HiDPI framebuffers larger than the window.
	frame := readFrame(frameW, frameH)
	if frame.Bounds().Dx() != cfg.Width || frame.Bounds().Dy() != cfg.Height {
		out := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
		draw.CatmullRom.Scale(out, out.Bounds(), frame, frame.Bounds(), draw.Src, nil)
		frame = out
	}

	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err := png.Encode(fp, frame); err != nil {
		return err
	}
	if err := fp.Sync(); err != nil {
		return err
	}
	if !cfg.Silent {
		log.Printf("wrote %dx%d preview to %s", frame.Bounds().Dx(), frame.Bounds().Dy(), filename)
	}
	return nil
}

// uploadAttributes creates one vertex buffer per primitive attribute that
// carries data and binds it to the program's matching a_ input. Attributes
// the linker optimized out are skipped.
func uploadAttributes(prog glgl.Program, prim *cesium.Primitive) error {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	for _, attr := range prim.Attributes {
		if len(attr.Data) == 0 {
			continue
		}
		info := attr.Info()
		loc, err := prog.AttribLocation("a_" + info.VariableName + "\x00")
		if err != nil {
			continue
		}
		var vbo uint32
		gl.GenBuffers(1, &vbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
		gl.EnableVertexAttribArray(loc)
		n := int32(attr.ComponentCount)
		if info.GLSLType == "int" || strings.HasPrefix(info.GLSLType, "ivec") {
			ints := make([]int32, len(attr.Data))
			for i, v := range attr.Data {
				ints[i] = int32(v)
			}
			gl.BufferData(gl.ARRAY_BUFFER, 4*len(ints), gl.Ptr(ints), gl.STATIC_DRAW)
			gl.VertexAttribIPointer(loc, n, gl.INT, 0, gl.PtrOffset(0))
		} else {
			gl.BufferData(gl.ARRAY_BUFFER, 4*len(attr.Data), gl.Ptr(attr.Data), gl.STATIC_DRAW)
			gl.VertexAttribPointer(loc, n, gl.FLOAT, false, 0, gl.PtrOffset(0))
		}
	}
	return glgl.Err()
}

func setMatrixUniforms(prog glgl.Program, cfg PreviewConfig) error {
	model := orIdentity(cfg.Model)
	matrices := []struct {
		name string
		m    ms3.Mat4
	}{
		{"u_model\x00", model},
		{"u_view\x00", orIdentity(cfg.View)},
		{"u_projection\x00", orIdentity(cfg.Projection)},
	}
	for _, mu := range matrices {
		loc, err := prog.UniformLocation(mu.name)
		if err != nil {
			continue
		}
		arr := mu.m.Array()
		// Array is row major; let GL transpose on upload.
		gl.UniformMatrix4fv(loc, 1, true, &arr[0])
	}
	if loc, err := prog.UniformLocation("u_normalMatrix\x00"); err == nil {
		nm := normalMatrix(model)
		gl.UniformMatrix3fv(loc, 1, true, &nm[0])
	}
	return glgl.Err()
}

// uploadUniforms resolves the pipeline's merged uniform map and uploads
// each value. Names are visited in sorted order so texture unit assignment
// is reproducible across runs.
func uploadUniforms(prog glgl.Program, uniforms map[string]cesium.UniformFunc) error {
	var texUnit int32
	for _, name := range sortedUniformNames(uniforms) {
		value := uniforms[name]()
		loc, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			continue // unused by the program and optimized out
		}
		switch v := value.(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case int32:
			gl.Uniform1i(loc, v)
		case bool:
			var b int32
			if v {
				b = 1
			}
			gl.Uniform1i(loc, b)
		case ms2.Vec:
			gl.Uniform2f(loc, v.X, v.Y)
		case ms3.Vec:
			gl.Uniform3f(loc, v.X, v.Y, v.Z)
		case [4]float32:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case ms2.Mat2:
			arr := v.Array()
			gl.UniformMatrix2fv(loc, 1, true, &arr[0])
		case ms3.Mat3:
			arr := v.Array()
			gl.UniformMatrix3fv(loc, 1, true, &arr[0])
		case ms3.Mat4:
			arr := v.Array()
			gl.UniformMatrix4fv(loc, 1, true, &arr[0])
		case image.Image:
			if err := uploadTexture(v, uint32(texUnit)); err != nil {
				return fmt.Errorf("uniform %q: %w", name, err)
			}
			gl.Uniform1i(loc, texUnit)
			texUnit++
		case nil:
			return fmt.Errorf("uniform %q has no value bound", name)
		default:
			return fmt.Errorf("uniform %q: unsupported preview value type %T", name, value)
		}
	}
	return glgl.Err()
}

func uploadTexture(img image.Image, unit uint32) error {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*rgba.Rect.Dx() {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(rgba.Rect.Dx()), int32(rgba.Rect.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	return glgl.Err()
}

// readFrame copies the color buffer into an image, flipping rows since GL
// counts from the bottom-left corner.
func readFrame(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	pix := make([]byte, 4*width*height)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	stride := 4 * width
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:], pix[(height-1-y)*stride:(height-y)*stride])
	}
	return img
}

func startOffscreen(width, height int) (window *glfw.Window, terminate func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err = glfw.CreateWindow(width, height, "cesium preview", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating offscreen window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
