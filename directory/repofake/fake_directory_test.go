package repofake_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/directory/directorytest"
	"github.com/jrsteele09/go-session-server/directory/repofake"
)

func TestFakeDirectory_Contract(t *testing.T) {
	directorytest.Run(t, func(t *testing.T, now func() time.Time) directory.Directory {
		return repofake.NewFakeDirectory().WithNowTime(now)
	})
}
