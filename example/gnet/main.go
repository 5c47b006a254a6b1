package main

import (
	"github.com/panjf2000/gnet/v2"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/compat"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
	log *rtlog.Logger
}

func (es *echoServer) OnBoot(eng gnet.Engine) gnet.Action {
	es.log.Info("Echo", "server ready")
	return gnet.None
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	es.log.Debug("Echo", "%d bytes from %s", len(buf), c.RemoteAddr())
	c.Write(buf)
	return gnet.None
}

func main() {
	logger, err := rtlog.NewBuilder().
		Level(rtlog.SeverityDebug).
		TagLevel(compat.GnetTag, rtlog.SeverityInfo). // gnet's own debug output is noisy
		MaxLogsPerSecond(500).
		Build()
	if err != nil {
		panic(err)
	}
	defer logger.Shutdown()

	gnetAdapter := compat.NewGnetAdapter(logger)

	// Configure gnet server with the logger
	err = gnet.Run(
		&echoServer{log: logger},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
