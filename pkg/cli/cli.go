package cli

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gostereo/pmstereo/pkg/matcher"
	"github.com/gostereo/pmstereo/pkg/pmtype"
	"github.com/gostereo/pmstereo/pkg/stdimg"
)

// Version is the build version string used by the self-update check.
const Version = "0.1.0"

// Preset names a pre-tuned pmtype.Option profile a user can pick with
// --preset instead of spelling out every flag.
type Preset struct {
	Name        string
	Description string
	Option      pmtype.Option
}

// Presets enumerates the named option profiles offered by --preset.
var Presets = []Preset{
	{
		Name:        "default",
		Description: "teacher defaults: patch=35, disp=[0,64], 3 iterations",
		Option:      pmtype.DefaultOption(),
	},
	{
		Name:        "fast",
		Description: "small patch and one iteration, for quick previews",
		Option: pmtype.Option{
			PatchSize: 11, MinDisparity: 0, MaxDisparity: 64,
			Gamma: 10, Alpha: 0.9, TauCol: 10, TauGrad: 2, NumIters: 1,
		},
	},
	{
		Name:        "fronto-parallel",
		Description: "force-frontal-parallel planes, integer disparities",
		Option: pmtype.Option{
			PatchSize: 21, MinDisparity: 0, MaxDisparity: 64,
			Gamma: 10, Alpha: 0.9, TauCol: 10, TauGrad: 2, NumIters: 3,
			ForceFrontalParallel: true, IntegerDisparity: true,
		},
	},
	{
		Name:        "high-quality",
		Description: "large patch, more iterations, LR-check and hole-fill enabled",
		Option: pmtype.Option{
			PatchSize: 35, MinDisparity: 0, MaxDisparity: 96,
			Gamma: 10, Alpha: 0.9, TauCol: 10, TauGrad: 2, NumIters: 5,
			LRCheck: true, LRCheckThres: 1, FillHoles: true,
		},
	},
}

func presetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

func usage() {
	fmt.Println("usage: pmstereo [flags] <left.png> <right.png>")
	fmt.Println()
	fmt.Println("flags:")
	fmt.Print(HelpText())
	fmt.Println("  --preset <name>    use a named option profile instead of individual flags")
	fmt.Println("  --out <prefix>     output path prefix (default: \"disparity\")")
	fmt.Println("  --pre-blur <sigma> gaussian-blur the inputs before matching (0 disables)")
	fmt.Println("  --smooth-output    median-filter the disparity visualisations before saving")
	fmt.Println()
	fmt.Println("subcommands:")
	fmt.Println("  pmstereo update        check for and install a newer release")
	fmt.Println("  pmstereo info <path>   print image dimensions and EXIF summary")
}

// RunCLI is the entrypoint invoked by cmd/pmstereo. It loads .env defaults,
// parses flags, and dispatches to the matcher or to a subcommand.
func RunCLI() {
	if envPath := firstExisting(".env", os.Getenv("PMSTEREO_ENV")); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			_ = LoadDotEnv(envPath) // teacher's hand-rolled fallback parser
		}
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "update":
		if err := CheckForUpdates(); err != nil {
			fmt.Fprintf(os.Stderr, "update check error: %v\n", err)
			os.Exit(1)
		}
		return
	case "info":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: pmstereo info <path>")
			os.Exit(1)
		}
		runInfo(args[1])
		return
	case "-h", "--help", "help":
		usage()
		return
	}

	runMatch(args)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func runInfo(path string) {
	img, _, err := LoadImage(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read image %s: %v\n", path, err)
		os.Exit(1)
	}
	if info, ierr := GetImageInfoImage(img); ierr == nil {
		fmt.Println(info)
	}
	if ex, err := ExtractEXIFStruct(path); err == nil {
		if ex.Make != "" || ex.Model != "" {
			fmt.Printf("Make: %s\nModel: %s\n", ex.Make, ex.Model)
		}
		if ex.Orientation != 0 {
			fmt.Printf("Orientation: %d\n", ex.Orientation)
		}
		if ex.DateTimeOriginal != "" {
			fmt.Printf("DateTimeOriginal: %s\n", ex.DateTimeOriginal)
		}
	}
	if PreviewSupported() {
		edge := stdimg.EdgeEx(stdimg.ToNRGBA(img), 1.0, 1.0, 0, false)
		_ = PreviewImage(edge, "png")
	}
}

func runMatch(args []string) {
	opt := pmtype.DefaultOption()
	outPrefix := "disparity"
	preBlur := 0.0
	smoothOutput := false
	explicitFlagsSeen := false

	var positional []string

	i := 0
	for i < len(args) {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			positional = append(positional, a)
			i++
			continue
		}
		flag := strings.TrimPrefix(a, "--")
		if flag == "smooth-output" {
			smoothOutput = true
			i++
			continue
		}
		// boolean flags may be given bare, without a following value
		if fs, ok := fieldByFlag(flag); ok && fs.Rule.Type == ParamTypeBool {
			val := "true"
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
				if _, err := parseBoolLikeToString(args[i+1]); err == nil {
					val = args[i+1]
					i++
				}
			}
			applyFlag(&opt, flag, val)
			explicitFlagsSeen = true
			i++
			continue
		}
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "--%s requires a value\n", flag)
			os.Exit(1)
		}
		val := args[i+1]
		i += 2
		switch flag {
		case "out":
			outPrefix = val
			continue
		case "pre-blur":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--pre-blur: invalid float %q\n", val)
				os.Exit(1)
			}
			preBlur = f
			continue
		case "preset":
			p, ok := presetByName(val)
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown preset %q\n", val)
				os.Exit(1)
			}
			opt = p.Option
			continue
		}
		applyFlag(&opt, flag, val)
		explicitFlagsSeen = true
	}

	if !explicitFlagsSeen && len(positional) > 0 {
		if name, err := SelectPresetWithFzf(Presets); err == nil && name != "" {
			if p, ok := presetByName(name); ok {
				opt = p.Option
			}
		}
	}

	if len(positional) < 2 {
		usage()
		os.Exit(1)
	}

	if seedEnv := os.Getenv("PMSTEREO_SEED"); seedEnv != "" && opt.Seed == 0 {
		if s, err := strconv.ParseInt(seedEnv, 10, 64); err == nil {
			opt.Seed = s
		}
	}
	if opt.Seed == 0 {
		opt.Seed = time.Now().UnixNano()
	}
	if outEnv := os.Getenv("PMSTEREO_OUT_DIR"); outEnv != "" {
		outPrefix = strings.TrimRight(outEnv, "/") + "/" + outPrefix
	}

	if err := opt.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid option: %v\n", err)
		os.Exit(1)
	}

	leftPath, rightPath := positional[0], positional[1]
	leftImg, _, err := LoadImage(leftPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read left image %s: %v\n", leftPath, err)
		os.Exit(1)
	}
	rightImg, _, err := LoadImage(rightPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read right image %s: %v\n", rightPath, err)
		os.Exit(1)
	}

	if preBlur > 0 {
		leftImg = stdimg.SeparableGaussianBlur(stdimg.ToNRGBA(leftImg), preBlur)
		rightImg = stdimg.SeparableGaussianBlur(stdimg.ToNRGBA(rightImg), preBlur)
	}

	if PreviewSupported() {
		_ = PreviewImage(leftImg, "png")
		_ = PreviewImage(rightImg, "png")
	}

	left := buildImage(leftImg)
	right := buildImage(rightImg)
	if left.w != right.w || left.h != right.h {
		fmt.Fprintf(os.Stderr, "left/right dimension mismatch: %dx%d vs %dx%d\n", left.w, left.h, right.w, right.h)
		os.Exit(1)
	}

	m := matcher.NewMatcher()
	if err := m.Initialize(left.w, left.h, opt); err != nil {
		fmt.Fprintf(os.Stderr, "initialize failed: %v\n", err)
		os.Exit(1)
	}
	defer m.Release()

	if err := m.Match(matcher.Image{Color: left.color, Gradient: left.gradient}, matcher.Image{Color: right.color, Gradient: right.gradient}); err != nil {
		fmt.Fprintf(os.Stderr, "match failed: %v\n", err)
		os.Exit(1)
	}

	leftVis := writeDisparity(outPrefix+"_left.png", m.DisparityLeft(), left.w, left.h, smoothOutput)
	rightVis := writeDisparity(outPrefix+"_right.png", m.DisparityRight(), right.w, right.h, smoothOutput)

	writeSideBySide(outPrefix+"_side_by_side.png", leftVis, rightVis, opt)
	writeHistogram(outPrefix+"_histogram.png", leftVis)
	if opt.LRCheck {
		writeOcclusionMask(outPrefix+"_occlusion_left.png", m.MismatchLeft(), left.w, left.h)
		writeOcclusionMask(outPrefix+"_occlusion_right.png", m.MismatchRight(), right.w, right.h)
	}

	if PreviewSupported() {
		if leftVis != nil {
			_ = PreviewImage(leftVis, "png")
		}
		if rightVis != nil {
			_ = PreviewImage(rightVis, "png")
		}
	}

	fmt.Printf("wrote %s_left.png and %s_right.png\n", outPrefix, outPrefix)
}

func applyFlag(opt *pmtype.Option, flag, raw string) {
	canon, err := ValidateFlagValue(flag, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	switch flag {
	case "patch":
		opt.PatchSize, _ = strconv.Atoi(canon)
	case "min-disp":
		opt.MinDisparity, _ = strconv.Atoi(canon)
	case "max-disp":
		opt.MaxDisparity, _ = strconv.Atoi(canon)
	case "gamma":
		opt.Gamma, _ = strconv.ParseFloat(canon, 64)
	case "alpha":
		opt.Alpha, _ = strconv.ParseFloat(canon, 64)
	case "tau-col":
		opt.TauCol, _ = strconv.ParseFloat(canon, 64)
	case "tau-grad":
		opt.TauGrad, _ = strconv.ParseFloat(canon, 64)
	case "iters":
		opt.NumIters, _ = strconv.Atoi(canon)
	case "lr-check":
		opt.LRCheck = canon == "true"
	case "lr-thresh":
		opt.LRCheckThres, _ = strconv.ParseFloat(canon, 64)
	case "fill-holes":
		opt.FillHoles = canon == "true"
	case "force-fpw":
		opt.ForceFrontalParallel = canon == "true"
	case "integer-disp":
		opt.IntegerDisparity = canon == "true"
	case "seed":
		s, _ := strconv.ParseInt(canon, 10, 64)
		opt.Seed = s
	}
}

type preparedImage struct {
	color    []pmtype.Color
	gradient []pmtype.Gradient
	w, h     int
}

// buildImage converts a decoded image into the packed BGR color buffer and
// Sobel gradient plane the matcher consumes.
func buildImage(img image.Image) preparedImage {
	buf, w, h := stdimg.ToBGRBuffer(img)
	gray := stdimg.Grayscale(buf, w, h)
	grads := stdimg.SobelGradients(gray, w, h)

	colors := make([]pmtype.Color, w*h)
	for i := range colors {
		colors[i] = pmtype.Color{B: buf[i*3], G: buf[i*3+1], R: buf[i*3+2]}
	}

	return preparedImage{color: colors, gradient: grads, w: w, h: h}
}

// writeDisparity renders a disparity plane to a normalized grayscale image,
// optionally median-filters it, saves it to path, and returns it for preview.
func writeDisparity(path string, disp []float64, w, h int, smooth bool) image.Image {
	vis := stdimg.NormalizeDisparity(disp, w, h)
	var out image.Image = vis
	if smooth {
		out = stdimg.MedianFilter(vis, 1)
	}
	if err := SaveImage(path, out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		return nil
	}
	return out
}

// writeSideBySide composites the left and right disparity visualisations
// into one canvas and stamps a parameter-summary legend beneath them.
func writeSideBySide(path string, leftVis, rightVis image.Image, opt pmtype.Option) {
	if leftVis == nil || rightVis == nil {
		return
	}
	lb := leftVis.Bounds()
	rb := rightVis.Bounds()
	canvasH := lb.Dy()
	if rb.Dy() > canvasH {
		canvasH = rb.Dy()
	}
	const legendHeight = 18
	canvas := image.NewNRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), canvasH+legendHeight))
	stdimg.Composite(canvas, leftVis, "OVER", 0, 0)
	stdimg.Composite(canvas, rightVis, "OVER", lb.Dx(), 0)

	legend := fmt.Sprintf("patch=%d disp=[%d,%d] iters=%d alpha=%.2f gamma=%.1f",
		opt.PatchSize, opt.MinDisparity, opt.MaxDisparity, opt.NumIters, opt.Alpha, opt.Gamma)
	var out image.Image = canvas
	if annotated, err := stdimg.Annotate(canvas, legend, "", 0, 4, canvasH+13, color.NRGBA{R: 255, G: 255, B: 255, A: 255}); err == nil {
		out = annotated
	}

	if err := SaveImage(path, out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		return
	}
	fmt.Printf("wrote %s\n", path)
}

// writeHistogram renders the per-channel histogram of a disparity
// visualisation (a grayscale image, so R=G=B) as a diagnostic panel.
func writeHistogram(path string, vis image.Image) {
	if vis == nil {
		return
	}
	r, g, b := stdimg.ComputeHistogram(stdimg.ToNRGBA(vis), 256)
	img := stdimg.RenderHistogramImage(r, g, b, 512, 120)
	if err := SaveImage(path, img); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		return
	}
	fmt.Printf("wrote %s\n", path)
}

// writeOcclusionMask turns an LR-check mismatch set into a bilevel image
// (white = valid, black = occluded) and adaptively thresholds it to clean
// up isolated pixels before saving.
func writeOcclusionMask(path string, mismatch []bool, w, h int) {
	if mismatch == nil {
		return
	}
	raw := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := raw.PixOffset(x, y)
			v := uint8(255)
			if mismatch[y*w+x] {
				v = 0
			}
			raw.Pix[i+0], raw.Pix[i+1], raw.Pix[i+2], raw.Pix[i+3] = v, v, v, 255
		}
	}
	cleaned := stdimg.AdaptiveThreshold(raw, 15, 15, 2)
	if err := SaveImage(path, cleaned); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		return
	}
	fmt.Printf("wrote %s\n", path)
}
