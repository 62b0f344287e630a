package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/gridlinehq/gridline/internal/wire"
)

var messageSpew = spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true}

// StartUtilities spins off the services associated with debug mode.
func StartUtilities(logger *logrus.Logger, pprofPort int) {
	startPprofServer(logger, pprofPort)
}

// startPprofServer starts the default pprof HTTP server that can be accessed via localhost
// to get runtime information about the server. See https://golang.org/pkg/net/http/pprof/
func startPprofServer(logger *logrus.Logger, pprofPort int) {
	listenerAddr := fmt.Sprintf("localhost:%d", pprofPort)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// PrintMessage dumps a decoded client message to the debug log.
func PrintMessage(logger *logrus.Logger, connID int, msg *wire.Message) {
	logger.Debugf("message from connection %d:\n%s", connID, messageSpew.Sdump(msg))
}
