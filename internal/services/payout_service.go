package services

import (
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"

	"github.com/amider/backend/internal/models"
)

// PayoutService renders approved withdrawals as ISO 20022 messages for the
// bank settlement channel. It only reads the snapshot frozen on the ledger
// entry, never the messenger's current bank profile.
type PayoutService struct {
	db *sql.DB
}

func NewPayoutService(db *sql.DB) *PayoutService {
	return &PayoutService{db: db}
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message for
// an approved withdrawal.
func (p *PayoutService) CreatePacs008(request *models.WithdrawalRequest) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if request.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: payout messages are built for completed withdrawals only", ErrValidation)
	}

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()

	// ISO amounts are in display units; the ledger holds minor units.
	amount := float64(request.Amount) / 100

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(request.Currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(request.ID)}[0],
					EndToEndId: common.Max35Text(request.ID),
					TxId:       &[]common.Max35Text{common.Max35Text(request.ID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(request.Currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier("AMIDERIL")}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text("Amider Fundraising")}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(request.BankBranch),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(request.BankAccountHolder)}[0],
				},
			},
		},
	}

	return doc, nil
}

// CreatePacs002 creates a pacs.002 payment status report acknowledging a
// payout (ACSC on settlement, RJCT on bank refusal).
func (p *PayoutService) CreatePacs002(request *models.WithdrawalRequest, status string) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(request.ID)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(request.ID)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(request.ID)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0],
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts an ISO20022 document to an XML string
func (p *PayoutService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func (p *PayoutService) fetchApprovedWithdrawal(requestID string) (*models.WithdrawalRequest, error) {
	request := &models.WithdrawalRequest{}
	err := p.db.QueryRow(`
		SELECT id, messenger_id, amount, currency, status,
		       COALESCE(bank_name, ''), COALESCE(bank_branch, ''),
		       COALESCE(bank_account_number, ''), COALESCE(bank_account_holder, ''),
		       approved_at, approved_by_admin_id, created_at, status_changed_at
		FROM ledger_entries
		WHERE id = $1 AND kind = 'withdrawal'`, requestID).Scan(
		&request.ID, &request.MessengerID, &request.Amount, &request.Currency, &request.Status,
		&request.BankName, &request.BankBranch,
		&request.BankAccountNumber, &request.BankAccountHolder,
		&request.ApprovedAt, &request.ApprovedByAdminID, &request.CreatedAt, &request.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	request.Kind = models.KindWithdrawal
	request.RequestedAt = request.CreatedAt
	return request, nil
}

// GetPayoutMessage renders the pacs.008 for an approved withdrawal
// @Summary Get payout message
// @Description Render the ISO 20022 pacs.008 credit transfer for an approved withdrawal, for upload to the bank channel
// @Tags payouts
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Withdrawal request ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/withdrawals/{requestId}/payout-message [get]
func (p *PayoutService) GetPayoutMessage(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	request, err := p.fetchApprovedWithdrawal(requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Withdrawal request not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[PAYOUT] Failed to fetch request %s: %v", requestID, err)
			SendErrorResponse(w, "Failed to fetch withdrawal request", http.StatusInternalServerError, nil)
		}
		return
	}

	doc, err := p.CreatePacs008(request)
	if err != nil {
		SendLedgerError(w, err)
		return
	}

	xmlData, err := p.ConvertToXML(doc)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "rendered",
		"messageType": "pacs.008.001.08",
		"xml":         xmlData,
	})
}
