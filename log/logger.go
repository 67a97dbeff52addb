package log

import log "github.com/cihub/seelog"

const consoleConfig = `<seelog minlevel="info">
	<outputs formatid="main"><console/></outputs>
	<formats><format id="main" format="%Date %Time [%LEVEL] %Msg%n"/></formats>
</seelog>`

// InitLogger replaces the global seelog logger with the one described by
// cfgfile, or a console logger when cfgfile is empty.
func InitLogger(cfgfile string) error {
	var (
		logger log.LoggerInterface
		err    error
	)
	if cfgfile == "" {
		logger, err = log.LoggerFromConfigAsString(consoleConfig)
	} else {
		logger, err = log.LoggerFromConfigAsFile(cfgfile)
	}
	if err != nil {
		return err
	}
	return log.ReplaceLogger(logger)
}
