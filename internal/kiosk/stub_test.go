package kiosk

import (
	"context"

	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/store"
)

type stubProvisioner struct{}

func (stubProvisioner) Start() error                    { return nil }
func (stubProvisioner) Poll() (store.Credentials, bool) { return store.Credentials{}, false }
func (stubProvisioner) Stop()                           {}

type stubLink struct{}

func (stubLink) Associate(store.Credentials) {}
func (stubLink) Associated() bool            { return false }

type stubSubmitter struct{}

func (stubSubmitter) Submit(context.Context, printclient.Request) printclient.Outcome {
	return printclient.Accepted(printclient.DefaultMessage, 1)
}
