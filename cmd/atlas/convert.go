package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/convert"
	"tilehub/atlas/pkg/telemetry/logging"
	"tilehub/atlas/pkg/upstream"
)

var convertFlags struct {
	styleURL  string
	spriteURL string
	glyphsURL string
	fontMap   []string
	output    string
	timeout   time.Duration
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a foreign vendor style document",
	Long: `Fetch a foreign vendor's vector style document and convert it into the
canonical schema: relative references are absolutized, vector sources
without tile templates get one synthesized, fonts are remapped, and
vendor-specific properties are removed.

The converted document carries real upstream URLs and no credentials; it is
meant for one-time import, not live serving.

Examples:
  # Convert and print to stdout
  atlas convert --url https://host/root/resources/styles/root.json

  # Write to a file with font remapping
  atlas convert --url https://host/root/resources/styles/root.json \
    --font "Arial Unicode=Noto Sans Regular" \
    --output style.json`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertFlags.styleURL, "url", "", "absolute URL of the style document (required)")
	convertCmd.Flags().StringVar(&convertFlags.spriteURL, "sprite", "", "override sprite URL")
	convertCmd.Flags().StringVar(&convertFlags.glyphsURL, "glyphs", "", "override glyphs URL template")
	convertCmd.Flags().StringArrayVar(&convertFlags.fontMap, "font", nil, "font remapping as from=to (repeatable, first match wins)")
	convertCmd.Flags().StringVarP(&convertFlags.output, "output", "o", "", "write converted style to file instead of stdout")
	convertCmd.Flags().DurationVar(&convertFlags.timeout, "timeout", 30*time.Second, "fetch timeout")
	convertCmd.MarkFlagRequired("url")
}

func runConvert(cmd *cobra.Command, args []string) error {
	fontRules, err := parseFontRules(convertFlags.fontMap)
	if err != nil {
		return err
	}

	client := upstream.NewClient(config.UpstreamConfig{MaxRetries: 2}, logging.NewRedactor())
	converter := convert.New(client, convertFlags.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), convertFlags.timeout)
	defer cancel()

	out, err := converter.Convert(ctx, convert.Input{
		StyleURL:    convertFlags.styleURL,
		SpriteURL:   convertFlags.spriteURL,
		GlyphsURL:   convertFlags.glyphsURL,
		FontMapping: fontRules,
	})
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	encoded, err := json.MarshalIndent(out.Style, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode converted style: %w", err)
	}

	if convertFlags.output != "" {
		if err := os.WriteFile(convertFlags.output, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", convertFlags.output, err)
		}
		fmt.Printf("✓ Converted style written to %s\n", convertFlags.output)
	} else {
		fmt.Println(string(encoded))
	}

	stats := out.Statistics
	fmt.Fprintf(os.Stderr, "✓ Converted: %d layers, %d sources, size ratio %.2f\n",
		stats.LayerCount, stats.SourceCount, stats.SizeRatio)
	for layerType, count := range stats.LayersByType {
		fmt.Fprintf(os.Stderr, "    %-12s %d\n", layerType, count)
	}
	return nil
}

func parseFontRules(pairs []string) ([]convert.FontRule, error) {
	rules := make([]convert.FontRule, 0, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid --font value %q, expected from=to", pair)
		}
		rules = append(rules, convert.FontRule{From: from, To: to})
	}
	return rules, nil
}
