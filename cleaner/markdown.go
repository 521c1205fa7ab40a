package cleaner

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter pins every delimiter the converter lets us choose,
// so one DOM always renders to the same bytes. Links without a target or
// without text carry nothing worth diffing and are rendered as plain text.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithBulletListMarker("-"),
				commonmark.WithEmDelimiter("_"),
				commonmark.WithStrongDelimiter("**"),
				commonmark.WithCodeBlockFence("```"),
				commonmark.WithLinkEmptyHrefBehavior(commonmark.LinkBehaviorSkip),
				commonmark.WithLinkEmptyContentBehavior(commonmark.LinkBehaviorSkip),
			),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts markup to Markdown with relative links made absolute
// against sourceURL. The converter drops <head>, so a non-empty title is
// kept in a front-matter block ahead of the body.
func ToMarkdown(conv *converter.Converter, markup, title, sourceURL string) (string, error) {
	md, err := conv.ConvertString(markup, converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}
	md = strings.TrimSpace(md)
	if title == "" {
		return md + "\n", nil
	}
	return fmt.Sprintf("---\ntitle: %q\n---\n\n%s\n", title, md), nil
}
