// Package lottieinline embeds the external images of a Lottie animation
// (JSON) as base64 data URIs, producing a single self-contained file.
//
// The CLI lives in cmd/lottie-json-inline; this root package exposes the same
// conversion as a Go API so that callers can embed it in their own build
// tools without shelling out.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the
// package is named lottieinline:
//
//	import "github.com/kataras/lottie-inline" // package lottieinline
//
// # Quick start
//
//	result, err := lottieinline.Run(lottieinline.Options{
//	    InputPath:  "animations/loader/data.json",
//	    OutputPath: "dist/loader.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("inlined %d image(s)\n", len(result.Inlined))
//
// Image paths are resolved against the directory of the input file: an
// asset's "u" (base directory) and "p" (file name) are joined onto it. Assets
// already embedded ("e": 1) and assets without "p" are left untouched.
//
// # Errors
//
// Every failure (malformed JSON, a missing image) is reported before the
// output file is created, so a failed run never leaves a partial result.
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output.
//
// # Watch mode
//
// [Watch] converts once and then again whenever the input file or one of the
// inlined images changes, until its context is cancelled.
package lottieinline
