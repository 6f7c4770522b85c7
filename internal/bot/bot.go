package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/listing"
	"car-landed-cost/internal/numfmt"
	"car-landed-cost/internal/quote"
	"car-landed-cost/internal/rates"
	"car-landed-cost/internal/storage"
)

// API is the subset of the Telegram client the bot drives.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *ReplyKeyboard) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
	SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string) error
}

// Calculator runs landed-cost calculations.
type Calculator interface {
	CalculateFromListing(ctx context.Context, id int64) (*quote.Quote, error)
	CalculateManual(ctx context.Context, in quote.ManualInput) (*quote.Quote, error)
	CurrentRates(ctx context.Context) (rates.Snapshot, error)
}

// Reports fetches the marketplace inspection and insurance views.
type Reports interface {
	FetchInspection(ctx context.Context, vehicleID int64) (*listing.InspectionReport, error)
	FetchInsurance(ctx context.Context, vehicleID int64, vehicleNo string) (*listing.InsuranceSummary, error)
}

var (
	_ API        = (*Client)(nil)
	_ Calculator = (*quote.Service)(nil)
	_ Reports    = (*listing.Client)(nil)
)

var thousand = decimal.NewFromInt(1000)

func decimalFromInt(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

type dialogState int

const (
	stateAskAge dialogState = iota + 1
	stateAskDisplacement
	stateAskPrice
)

type session struct {
	state          dialogState
	age            customs.AgeBracket
	displacementCC int64
}

// Bot is the chat front end: it long-polls Telegram and answers with quotes,
// rates and listing reports.
type Bot struct {
	api         API
	calc        Calculator
	reports     Reports
	users       storage.UserStore
	pollTimeout time.Duration
	logger      zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// New constructs the bot. reports and users may be nil.
func New(api API, calc Calculator, reports Reports, users storage.UserStore, pollTimeout time.Duration, logger zerolog.Logger) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Bot{
		api:         api,
		calc:        calc,
		reports:     reports,
		users:       users,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("component", "bot").Logger(),
		sessions:    make(map[int64]*session),
	}
}

// Run blocks, polling for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn().Err(err).Msg("polling failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
				continue
			}
			b.handleMessage(ctx, update)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, update Update) {
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	b.registerUser(ctx, update)

	if sess := b.session(chatID); sess != nil {
		b.advanceDialog(ctx, chatID, sess, text)
		return
	}

	switch {
	case text == "/start":
		b.send(ctx, chatID, greetingText, mainKeyboard())
	case text == "/rates" || text == "/cbr" || text == ratesButton:
		b.sendRates(ctx, chatID)
	case text == "/manual" || text == manualButton:
		b.setSession(chatID, &session{state: stateAskAge})
		b.send(ctx, chatID, askAgeText, ageKeyboard())
	default:
		if id, ok := extractListingID(text); ok {
			b.sendListingQuote(ctx, chatID, id)
			return
		}
		b.send(ctx, chatID, unknownCommandText, mainKeyboard())
	}
}

func (b *Bot) advanceDialog(ctx context.Context, chatID int64, sess *session, text string) {
	switch sess.state {
	case stateAskAge:
		bracket, ok := bracketFromLabel(text)
		if !ok {
			b.send(ctx, chatID, badAgeText, ageKeyboard())
			return
		}
		sess.age = bracket
		sess.state = stateAskDisplacement
		b.send(ctx, chatID, askDisplacementText, nil)

	case stateAskDisplacement:
		value, err := numfmt.ParsePositiveAmount(text)
		if err != nil || !value.IsInteger() {
			b.send(ctx, chatID, badDisplacementText, nil)
			return
		}
		sess.displacementCC = value.IntPart()
		sess.state = stateAskPrice
		b.send(ctx, chatID, askPriceText, nil)

	case stateAskPrice:
		price, err := numfmt.ParsePositiveAmount(text)
		if err != nil {
			b.send(ctx, chatID, badPriceText, nil)
			return
		}
		b.clearSession(chatID)

		result, err := b.calc.CalculateManual(ctx, quote.ManualInput{
			Age:            sess.age,
			DisplacementCC: sess.displacementCC,
			PriceKRW:       price,
		})
		if err != nil {
			b.sendCalcError(ctx, chatID, err)
			return
		}
		b.send(ctx, chatID, renderQuote(result), mainKeyboard())
		b.countCalculation(ctx, chatID)
	}
}

func (b *Bot) sendListingQuote(ctx context.Context, chatID int64, id int64) {
	result, err := b.calc.CalculateFromListing(ctx, id)
	if err != nil {
		b.sendCalcError(ctx, chatID, err)
		return
	}

	if result.Vehicle != nil && len(result.Vehicle.PhotoURLs) > 0 {
		if err := b.api.SendMediaGroup(ctx, chatID, result.Vehicle.PhotoURLs); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send photos")
		}
	}

	b.send(ctx, chatID, renderQuote(result), mainKeyboard())
	b.sendReports(ctx, chatID, result.Vehicle)
	b.countCalculation(ctx, chatID)
}

func (b *Bot) sendReports(ctx context.Context, chatID int64, vehicle *listing.VehicleListing) {
	if b.reports == nil || vehicle == nil || vehicle.VehicleID == 0 {
		return
	}

	if report, err := b.reports.FetchInspection(ctx, vehicle.VehicleID); err == nil {
		b.send(ctx, chatID, renderInspection(report), nil)
	} else {
		b.logger.Debug().Err(err).Int64("vehicle_id", vehicle.VehicleID).Msg("inspection report unavailable")
	}

	if vehicle.VehicleNo == "" {
		return
	}
	if summary, err := b.reports.FetchInsurance(ctx, vehicle.VehicleID, vehicle.VehicleNo); err == nil {
		b.send(ctx, chatID, renderInsurance(summary), nil)
	} else {
		b.logger.Debug().Err(err).Int64("vehicle_id", vehicle.VehicleID).Msg("insurance summary unavailable")
	}
}

func (b *Bot) sendRates(ctx context.Context, chatID int64) {
	snapshot, err := b.calc.CurrentRates(ctx)
	if err != nil {
		b.send(ctx, chatID, ratesUnavailableText, mainKeyboard())
		return
	}
	b.send(ctx, chatID, renderRates(snapshot), mainKeyboard())
}

func (b *Bot) sendCalcError(ctx context.Context, chatID int64, err error) {
	b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("calculation failed")

	switch {
	case errors.Is(err, rates.ErrRateUnavailable):
		b.send(ctx, chatID, ratesUnavailableText, mainKeyboard())
	case errors.Is(err, listing.ErrListingUnavailable):
		b.send(ctx, chatID, listingUnavailableText, mainKeyboard())
	case errors.Is(err, customs.ErrUnsupportedBracket):
		b.send(ctx, chatID, unsupportedBracketText, mainKeyboard())
	case errors.Is(err, numfmt.ErrInvalidInput):
		b.send(ctx, chatID, calculationFailedPrefix+badPriceText, mainKeyboard())
	default:
		b.send(ctx, chatID, internalErrorText, mainKeyboard())
	}
}

func (b *Bot) registerUser(ctx context.Context, update Update) {
	if b.users == nil || update.Message.From == nil {
		return
	}
	user := storage.User{
		ChatID:    update.Message.Chat.ID,
		Username:  update.Message.From.Username,
		FirstName: update.Message.From.FirstName,
	}
	if err := b.users.UpsertUser(ctx, user); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		b.logger.Warn().Err(err).Int64("chat_id", user.ChatID).Msg("failed to upsert user")
	}
}

func (b *Bot) countCalculation(ctx context.Context, chatID int64) {
	if b.users == nil {
		return
	}
	if _, err := b.users.IncrementCalcCount(ctx, chatID); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to count calculation")
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, keyboard *ReplyKeyboard) {
	if err := b.api.SendMessage(ctx, chatID, text, keyboard); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) setSession(chatID int64, sess *session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = sess
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}
