package directory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/models"
)

// LedgerClient reads pending commission amounts from the commission ledger SOAP service
type LedgerClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewLedgerClient initializes a new commission ledger client
func NewLedgerClient(url string, client *http.Client, log *logrus.Logger) *LedgerClient {
	return &LedgerClient{url: url, client: client, log: log}
}

// buildSOAPRequest creates a SOAP request for the pending amounts of one entity type
func (l *LedgerClient) buildSOAPRequest(entityType models.EntityType) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<PendingCommissions xmlns="http://ledger.internal/">
					<EntityType>%s</EntityType>
				</PendingCommissions>
			</soap12:Body>
		</soap12:Envelope>`, entityType)
}

// PendingAmounts returns the outstanding amount per entity id for entityType.
// Entities absent from the report have nothing pending.
func (l *LedgerClient) PendingAmounts(ctx context.Context, entityType models.EntityType) (map[string]decimal.Decimal, error) {
	body, err := l.sendRequest(ctx, l.buildSOAPRequest(entityType))
	if err != nil {
		return nil, err
	}
	return l.parseXMLResponse(body)
}

func (l *LedgerClient) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://ledger.internal/PendingCommissions")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	l.log.Debugf("Commission ledger XML response: %s", string(body))
	return body, nil
}

func (l *LedgerClient) parseXMLResponse(rawBody []byte) (map[string]decimal.Decimal, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to parse XML: %w", err))
	}

	result := doc.FindElement("//PendingCommissionsResult")
	if result == nil {
		return nil, backoff.Permanent(errNoPendingData)
	}

	pending := make(map[string]decimal.Decimal)
	for _, entry := range result.SelectElements("Entry") {
		idElement := entry.SelectElement("EntityId")
		amountElement := entry.SelectElement("Amount")
		if idElement == nil || amountElement == nil {
			return nil, backoff.Permanent(fmt.Errorf("incomplete ledger entry in XML"))
		}
		amount, err := decimal.NewFromString(amountElement.Text())
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to parse amount for %s: %w", idElement.Text(), err))
		}
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		pending[idElement.Text()] = amount
	}
	return pending, nil
}
