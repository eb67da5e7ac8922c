package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/infrastructure/storage"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/facility"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "frames":
		in := os.Stdin
		if len(os.Args) > 2 {
			f, err := os.Open(os.Args[2])
			if err != nil {
				fmt.Printf("Cannot open: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			in = f
		}
		if err := dumpFrames(in, os.Stdout); err != nil {
			fmt.Printf("Read error: %v\n", err)
			os.Exit(1)
		}
	case "capture":
		if len(os.Args) < 3 {
			fmt.Println("Usage: wiredump capture <file.lmcap>")
			return
		}
		c, err := storage.Load(os.Args[2])
		if err != nil {
			fmt.Printf("Cannot load capture: %v\n", err)
			os.Exit(1)
		}
		dumpCapture(c, os.Stdout)
	case "layout":
		if len(os.Args) < 3 {
			fmt.Println("Usage: wiredump layout <seed> [out.json|out.mpk]")
			return
		}
		seed, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Invalid seed: %v\n", err)
			return
		}
		layout := facility.Generate(seed, facility.DefaultGenOptions())
		if len(os.Args) > 3 {
			if err := facility.SaveLayout(os.Args[3], layout); err != nil {
				fmt.Printf("Save failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
		out, _ := json.MarshalIndent(layout, "", "  ")
		fmt.Println(string(out))
	default:
		printHelp()
	}
}

// dumpFrames читает по одному кадру в hex на строку.
func dumpFrames(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		data, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			fmt.Fprintf(w, "%d: bad hex: %v\n", line, err)
			continue
		}
		fmt.Fprintf(w, "%d: %s\n", line, describe(data))
	}
	return sc.Err()
}

func dumpCapture(c *storage.Capture, w io.Writer) {
	fmt.Fprintf(w, "seed=%d started=%s frames=%d dropped=%d\n",
		c.Seed, c.Started.Format(time.RFC3339), len(c.Records), c.Dropped)
	for _, rec := range c.Records {
		fmt.Fprintf(w, "+%s %s: %s\n", rec.Offset, rec.Subscriber, describe(rec.Frame))
	}
}

func describe(data []byte) string {
	f, err := wire.Decode(data)
	if err != nil {
		return "invalid frame: " + err.Error()
	}
	head := fmt.Sprintf("v%d %s object=%s", f.Version, f.Tag, f.Object)
	switch {
	case f.Tag == wire.TagControl:
		var body map[string]any
		if err := wire.DecodeControl(f, &body); err != nil {
			return head + " control=<" + err.Error() + ">"
		}
		out, _ := json.Marshal(body)
		return head + " control=" + string(out)
	case f.Tag.IsUpdate():
		return head + " mask=" + f.Mask.String() + " " + fields(f)
	default:
		return head
	}
}

func fields(f wire.Frame) string {
	parts := make([]string, 0, 7)
	for _, field := range f.Mask.Fields() {
		var v any
		switch field {
		case domain.FieldPosition:
			v = f.State.Position
		case domain.FieldRotation:
			v = f.State.Rotation
		case domain.FieldScale:
			v = f.State.Scale
		case domain.FieldColor:
			v = f.State.Color
		case domain.FieldIntensity:
			v = f.State.Intensity
		case domain.FieldRange:
			v = f.State.Range
		case domain.FieldShadows:
			v = f.State.Shadows
		}
		parts = append(parts, fmt.Sprintf("%s=%v", field, v))
	}
	return strings.Join(parts, " ")
}

func printHelp() {
	fmt.Println(`Wire Dump - разбор кадров репликации
Commands:
  frames [file]              - декодировать кадры (hex, один кадр на строку) из файла или stdin
  capture <file>             - напечатать запись исходящего трафика (.lmcap)
  layout <seed> [out]        - сгенерировать раскладку комплекса (stdout или .json/.mpk)`)
}
