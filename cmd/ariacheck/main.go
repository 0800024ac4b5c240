// ariacheck runs a transcript through wake-word detection and intent
// resolution without audio or network, for checking the keyword table
// and wake patterns from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/wakeword"
)

func main() {
	locale := flag.String("locale", "hi-IN", "response locale (hi-IN or en-IN)")
	crop := flag.String("crop", "wheat", "ambient crop context")
	district := flag.String("district", "Nashik", "ambient district context")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ariacheck [flags] \"transcript\"")
		os.Exit(2)
	}
	transcript := flag.Arg(0)

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	detector := wakeword.NewDetector()

	if detector.ContainsWakeWord(transcript) {
		fmt.Println("wake word: detected")
		if detector.HasResidualCommand(transcript) {
			transcript = detector.ExtractCommand(transcript)
			fmt.Printf("residual command: %q\n", transcript)
		} else {
			fmt.Println("residual command: none")
			return
		}
	} else {
		fmt.Println("wake word: not detected")
	}

	// Local table only; no NLU fallback offline.
	resolver := intent.NewResolver(nil, *locale, logger)
	it := resolver.Resolve(context.Background(), transcript, intent.Context{
		Crop:     *crop,
		District: *district,
	})

	out, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
