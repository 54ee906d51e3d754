package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/output"
	"github.com/tsinghua-fib-lab/lanesim/task"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 路网构建完成后导出车道中心线WKT，覆盖配置中的output.wkt
	dumpWKT = flag.String("dump-wkt", "", "write lane centerlines as WKT MULTILINESTRING to this file")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "lanesim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	level, ok := logLevels[*logLevel]
	if !ok {
		log.Panicf("log.level must be one of %v", lo.Keys(logLevels))
	}
	logrus.SetLevel(level)
	data, err := readConfig()
	if err != nil {
		log.Panicf("config load err: %v", err)
	}
	c, err := config.Load(data)
	if err != nil {
		log.Panicf("config load err: %v", err)
	}
	log.Debugf("%+v", c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := task.NewContext(c, nil)
	if err := t.Init(ctx); err != nil {
		log.Panicf("init err: %v", err)
	}
	wkt := c.Output.WKT
	if *dumpWKT != "" {
		wkt = *dumpWKT
	}
	if wkt != "" {
		if err := output.WriteWKT(t.Network(), wkt); err != nil {
			log.Errorf("%v", err)
		}
	}
	if err := t.Run(ctx); err != nil {
		log.Warnf("run: %v", err)
	}
	if err := t.Close(); err != nil {
		log.Errorf("close: %v", err)
	}
}

// readConfig 读取-config指定的文件或-config-data中Base64编码的内容
func readConfig() ([]byte, error) {
	switch {
	case *configPath != "":
		return os.ReadFile(*configPath)
	case *configData != "":
		return base64.StdEncoding.DecodeString(*configData)
	}
	return nil, errors.New("-config or -config-data must be specified")
}
