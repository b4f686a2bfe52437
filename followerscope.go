package main

import (
	"errors"
	"fmt"

	"github.com/fedinode/fedinode/models"
	"gorm.io/gorm"
)

type FollowerScopeCmd struct {
	Username string `arg:"" help:"local actor being followed"`
	Follower string `arg:"" help:"actor id of the follower"`
	Scope    string `arg:"" help:"collection id the follower receives activities addressed to"`
}

func (f *FollowerScopeCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	err = models.NewFollowers(db).SetVisibility(f.Username, f.Follower, f.Scope)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s does not follow %s", f.Follower, f.Username)
	}
	return err
}
