package directory

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/commission-scheduler/internal/models"
)

func TestLedgerClient_ParseXMLResponse(t *testing.T) {
	l := NewLedgerClient(ledgerURL, nil, logrus.New())

	pending, err := l.parseXMLResponse([]byte(ledgerResponse(
		`<Entry><EntityId>ven_1</EntityId><Amount>300.25</Amount></Entry>` +
			`<Entry><EntityId>ven_2</EntityId><Amount>-10</Amount></Entry>`)))
	require.NoError(t, err)
	assert.Equal(t, "300.25", pending["ven_1"].String())
	assert.True(t, pending["ven_2"].IsZero())
}

func TestLedgerClient_ParseXMLResponse_Errors(t *testing.T) {
	l := NewLedgerClient(ledgerURL, nil, logrus.New())

	tests := map[string]string{
		"not xml":        "{}",
		"missing result": `<Envelope><Body/></Envelope>`,
		"bad amount":     ledgerResponse(`<Entry><EntityId>ven_1</EntityId><Amount>lots</Amount></Entry>`),
		"missing amount": ledgerResponse(`<Entry><EntityId>ven_1</EntityId></Entry>`),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := l.parseXMLResponse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLedgerClient_BuildSOAPRequest(t *testing.T) {
	l := NewLedgerClient(ledgerURL, nil, logrus.New())
	assert.Contains(t, l.buildSOAPRequest(models.EntityDoctor), "<EntityType>doctor</EntityType>")
}
