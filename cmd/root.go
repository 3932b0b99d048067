package cmd

import (
	"log/slog"
	"os"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/itihas-kahani/internal/config"
	"github.com/shouni/itihas-kahani/pkg/domain"
)

const appName = "itihas-kahani"

// flagOptions は CLI フラグで上書きされる値なのだ。
type flagOptions struct {
	Model    string
	Style    string
	Length   string
	Language string
}

var (
	opts flagOptions
	cfg  *config.Config
)

// addAppFlags は、全サブコマンド共通の生成パラメータを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.Short = "Gemini で歴史の物語を語るのだ"
	rootCmd.PersistentFlags().StringVar(&opts.Model, "model", "", "使用する Gemini モデル名なのだ（GEMINI_MODEL を上書き）。")
	rootCmd.PersistentFlags().StringVarP(&opts.Style, "style", "s", "", "educational / adventurous / mysterious / poetic")
	rootCmd.PersistentFlags().StringVarP(&opts.Length, "length", "l", "", "short / medium / long")
	rootCmd.PersistentFlags().StringVar(&opts.Language, "language", "", "hi / en")
}

// preRunAppE は設定とロガーを用意するのだ。
// --config が指定されていればそのファイルを .env として読むのだ。
// APIキーはここでは確認しない。無ければ生成時のエラーになるのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	var envFiles []string
	if clibase.Flags.ConfigFile != "" {
		envFiles = append(envFiles, clibase.Flags.ConfigFile)
	}
	cfg = config.LoadConfig(envFiles...)
	setupLogger(cfg, clibase.Flags.Verbose)
	applyFlags(cmd, cfg)
	return nil
}

// applyFlags は明示的に指定されたフラグだけを設定に反映するのだ。
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.GeminiModel = opts.Model
	}
	if flags.Changed("style") {
		cfg.Style = domain.ParseStyle(opts.Style)
	}
	if flags.Changed("length") {
		cfg.Length = domain.ParseLength(opts.Length)
	}
	if flags.Changed("language") {
		cfg.Language = domain.ParseLanguage(opts.Language)
	}
}

// setupLogger は verbose のときは LOG_LEVEL に関係なく Debug を出すのだ。
func setupLogger(cfg *config.Config, verbose bool) {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// Execute は main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		appName,
		addAppFlags,
		preRunAppE,
		serveCmd,
		tellCmd,
	)
}
