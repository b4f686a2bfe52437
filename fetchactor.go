package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedinode/fedinode/internal/webfinger"
	"github.com/fedinode/fedinode/models"
)

type FetchActorCmd struct {
	As    string `required:"" help:"local actor to sign the request as"`
	Actor string `arg:"" help:"actor id, or a user@host handle resolved with webfinger"`
}

func (f *FetchActorCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	signAs, err := models.NewActors(db).FindByName(f.As)
	if err != nil {
		return fmt.Errorf("failed to find actor %q: %w", f.As, err)
	}

	uri := f.Actor
	if !strings.HasPrefix(uri, "https://") {
		acct, err := webfinger.Parse(uri)
		if err != nil {
			return err
		}
		finger, err := acct.Fetch(context.Background())
		if err != nil {
			return fmt.Errorf("webfinger %s: %w", acct, err)
		}
		if uri, err = finger.ActivityPub(); err != nil {
			return err
		}
	}

	actor, err := ctx.newEnv(db, nil).FetchRemoteActor(context.Background(), signAs, uri)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", actor.URI, actor.Inbox, actor.PublicKeyID)
	return nil
}
