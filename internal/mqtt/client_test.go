package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationTopic(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("N/c0619ab1d2e3/pvinverter/20/Ac/L1/Power", notificationTopic("c0619ab1d2e3", "pvinverter", 20, "/Ac/L1/Power"))
	assert.Equal("N/venus/grid/30/Connected", notificationTopic("venus", "grid", 30, "Connected"), "missing leading slash")
	assert.Equal("N/venus/sungrow2venus/bridge/state", bridgeStateTopic("venus"))
	assert.Equal("N/venus/sungrow2venus/export_limit/state", ExportLimitStateTopic("venus"))
}

func TestExportLimitCommandParse(t *testing.T) {

	assert := assert.New(t)

	r := exportLimitCommandExtractor("venus")
	cmd, err := parseExportLimitCommand(r, "W/venus/sungrow2venus/export_limit/set", []byte(" 42.5\n"))

	assert.NoError(err)
	assert.Equal("export_limit", cmd.Command)
	assert.Equal(42.5, cmd.Value)
}

func TestExportLimitCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := exportLimitCommandExtractor("venus")

	_, err := parseExportLimitCommand(r, "W/other/sungrow2venus/export_limit/set", []byte("42"))
	assert.Error(err, "other portal")

	_, err = parseExportLimitCommand(r, "N/venus/sungrow2venus/export_limit/state", []byte("42"))
	assert.Error(err, "state topic is not a command")

	_, err = parseExportLimitCommand(r, "W/venus/sungrow2venus/export_limit/set", []byte("half"))
	assert.Error(err, "non numeric payload")
}
