package commands

import (
	"fmt"

	"github.com/fieldvoice/fieldvoice/pkg/cli"
	"github.com/fieldvoice/fieldvoice/pkg/diary"
)

// diaryClient builds a diary client from the selected context.
func diaryClient() (*diary.Client, *cli.Context, error) {
	ctx, err := currentContext()
	if err != nil {
		return nil, nil, err
	}
	if ctx.DiaryURL == "" {
		return nil, nil, fmt.Errorf("context %q has no diary_url", ctx.Name)
	}
	if ctx.UserID == "" {
		return nil, nil, fmt.Errorf("context %q has no user_id", ctx.Name)
	}
	return diary.NewClient(ctx.DiaryURL, ctx.DiaryAPIKey, ctx.UserID), ctx, nil
}
