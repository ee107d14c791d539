// Package ofx reads purchases out of OFX/QFX bank and card statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/balance/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line that lost their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile returns the purchases (debits) in an OFX/QFX statement.
// Deposits, refunds and other credits are skipped. UserID is left for the importer.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var (
		transactions       []model.Transaction
		bankStmts, ccStmts int
		skipped            int
	)

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			txns, n := p.convertList(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))
			transactions = append(transactions, txns...)
			skipped += n
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			txns, n := p.convertList(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))
			transactions = append(transactions, txns...)
			skipped += n
		}
	}

	p.logger.InfoContext(ctx, "parsed OFX file",
		"purchases", len(transactions),
		"skipped_credits", skipped,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *Parser) convertList(list []ofxgo.Transaction, accountID string) ([]model.Transaction, int) {
	var (
		transactions []model.Transaction
		skipped      int
	)
	for _, ofxTx := range list {
		txn, ok := p.convertTransaction(ofxTx, accountID)
		if !ok {
			skipped++
			continue
		}
		transactions = append(transactions, txn)
	}
	return transactions, skipped
}

// convertTransaction converts an OFX debit to a purchase. Credits report ok=false.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Transaction, bool) {
	// OFX uses negative amounts for debits.
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount >= 0 {
		return model.Transaction{}, false
	}

	merchant := p.extractMerchantName(ofxTx)
	txn := model.Transaction{
		ID:        fmt.Sprintf("ofx-%s-%s", accountID, ofxTx.FiTID),
		Merchant:  merchant,
		Amount:    -amount,
		Timestamp: ofxTx.DtPosted.Time.UTC(),
		Category:  categoryForType(ofxTx.TrnType),
	}

	memo := strings.TrimSpace(string(ofxTx.Memo))
	if memo != "" && !strings.EqualFold(memo, merchant) {
		txn.ItemText = model.NormalizeItemText(memo)
	}
	return txn, true
}

// categoryForType maps the few transaction types that imply a category.
// Everything else is left for merchant inference.
func categoryForType(trnType ofxgo.TrnType) string {
	switch strings.ToUpper(fmt.Sprintf("%v", trnType)) {
	case "FEE", "SRVCHG":
		return "bank fees"
	case "ATM", "CASH":
		return "cash"
	default:
		return ""
	}
}

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " authorization dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	// Processor markers: "SQ *BLUE BOTTLE" keeps the tail, "AMAZON.COM*RT4Y7HG2" the head.
	if i := strings.Index(name, "*"); i > 0 {
		head, tail := strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
		if len(head) <= 3 && tail != "" {
			name = tail
		} else {
			name = head
		}
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	default:
		return false
	}
}

// GetAccounts extracts unique account IDs from the OFX file, sorted.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = struct{}{}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = struct{}{}
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, nil
}
