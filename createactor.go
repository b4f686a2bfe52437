package main

import (
	"errors"
	"fmt"

	"github.com/fedinode/fedinode/internal/webfinger"
	"github.com/fedinode/fedinode/models"
)

type CreateActorCmd struct {
	Acct     string `arg:"" help:"user@domain of the actor to create"`
	Password string `help:"password for the authoring API; empty disables it" env:"FEDINODE_ACTOR_PASSWORD"`
}

func (c *CreateActorCmd) Run(ctx *Context) error {
	acct, err := webfinger.Parse(c.Acct)
	if err != nil {
		return err
	}
	if acct.Host == "" {
		return errors.New("acct must be user@domain")
	}
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	actor, err := models.NewActors(db).Create(acct.User, acct.Host, c.Password)
	if err != nil {
		return err
	}
	fmt.Println(actor.URI)
	return nil
}
