// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Command markitdown converts documents to Markdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "markitdown [flags] [source...]",
	Short: "Convert documents to Markdown",
	Long: `markitdown converts office documents, PDFs, spreadsheets, HTML, feeds,
notebooks, images and archives to Markdown.

Each source is a file path, an http(s) URL or an s3://bucket/key URL. With no
source the document is read from stdin; use -x or -m to hint its type.

Image descriptions are produced only when an enrichment model is configured
with --llm-model (or MARKITDOWN_LLM_MODEL).`,
	Args:          cobra.ArbitraryArgs,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./markitdown.yaml or ~/.config/markitdown/config.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")

	f := rootCmd.Flags()
	f.StringP("extension", "x", "", "file extension hint for stdin input")
	f.StringP("mime-type", "m", "", "MIME type hint for stdin input")
	f.StringP("charset", "c", "", "charset hint for stdin input")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("output-dir", "", "write one <name>.md per source into this directory")
	f.IntP("jobs", "j", 4, "number of sources converted concurrently")
	f.Bool("frontmatter", false, "prefix output with YAML front matter holding title and metadata")
	f.Bool("keep-data-uris", false, "keep full base64-encoded data URIs")
	f.String("llm-backend", "openai", "enrichment backend: openai or gemini")
	f.String("llm-endpoint", "", "enrichment backend base URL")
	f.String("llm-model", "", "enrichment model; empty disables image descriptions")
	f.String("llm-prompt", "", "prompt sent with each image")
	f.StringArray("llm-header", nil, `extra enrichment request header "Key: Value" (repeatable)`)

	_ = viper.BindPFlags(pf)
	_ = viper.BindPFlags(f)
}

func initConfig() {
	cfgFile := viper.GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("markitdown")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "markitdown"))
		}
	}

	viper.SetEnvPrefix("MARKITDOWN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
