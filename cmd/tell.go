package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/spf13/cobra"

	"github.com/shouni/itihas-kahani/internal/builder"
	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/imgutil"
)

var imageOut string

var tellCmd = &cobra.Command{
	Use:     "tell [prompt]",
	Short:   "物語を1つ生成して標準出力に書くのだ",
	Example: `  itihas-kahani tell "Ashoka ka itihas" --style poetic --image-out out/ashoka`,
	RunE:    tellCommand,
}

func init() {
	tellCmd.Flags().StringVarP(&imageOut, "image-out", "o", "", "挿絵の保存先（ローカル or gs:// or s3://、拡張子は MIME から付与）なのだ。")
}

func tellCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, store, err := builder.Build(cfg)
	if err != nil {
		return err
	}

	session := store.Create()
	if err := session.Start(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	result := session.State().CurrentResult
	fmt.Fprintln(cmd.OutOrStdout(), result.StoryText)

	if imageOut == "" || !result.HasImage() {
		return nil
	}

	writer, closeWriter, err := builder.InitializeOutputWriter(ctx, imageOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeWriter(); err != nil {
			slog.Warn("ストレージクライアントのクローズに失敗しました", "error", err)
		}
	}()

	_, err = saveImage(ctx, writer, imageOut, result)
	return err
}

// saveImage は data URI の挿絵をデコードし、base に拡張子を付けた場所へ書き込むのだ。
func saveImage(ctx context.Context, writer remoteio.OutputWriter, base string, result domain.StoryResult) (string, error) {
	mimeType, data, err := imgutil.ParseDataURI(result.ImageURL)
	if err != nil {
		return "", fmt.Errorf("挿絵のデコードに失敗しました: %w", err)
	}

	path := base + imgutil.ExtensionFor(mimeType)
	if err := writer.Write(ctx, path, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("挿絵の保存に失敗しました: %w", err)
	}
	slog.Info("挿絵を保存したのだ", "path", path, "mime_type", mimeType)
	return path, nil
}
