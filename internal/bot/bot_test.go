package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/listing"
	"car-landed-cost/internal/quote"
	"car-landed-cost/internal/rates"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *ReplyKeyboard
}

type stubAPI struct {
	messages []sentMessage
	albums   [][]string
}

func (s *stubAPI) GetUpdates(context.Context, int64, time.Duration) ([]Update, error) {
	return nil, nil
}

func (s *stubAPI) SendMessage(_ context.Context, chatID int64, text string, keyboard *ReplyKeyboard) error {
	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (s *stubAPI) SendPhoto(_ context.Context, chatID int64, photoURL, caption string) error {
	return nil
}

func (s *stubAPI) SendMediaGroup(_ context.Context, _ int64, photoURLs []string) error {
	s.albums = append(s.albums, photoURLs)
	return nil
}

func (s *stubAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(s.messages) == 0 {
		t.Fatal("no messages were sent")
	}
	return s.messages[len(s.messages)-1].text
}

type stubCalc struct {
	quote      *quote.Quote
	snapshot   rates.Snapshot
	err        error
	manualIn   *quote.ManualInput
	listingIDs []int64
}

func (s *stubCalc) CalculateFromListing(_ context.Context, id int64) (*quote.Quote, error) {
	s.listingIDs = append(s.listingIDs, id)
	return s.quote, s.err
}

func (s *stubCalc) CalculateManual(_ context.Context, in quote.ManualInput) (*quote.Quote, error) {
	s.manualIn = &in
	return s.quote, s.err
}

func (s *stubCalc) CurrentRates(context.Context) (rates.Snapshot, error) {
	return s.snapshot, s.err
}

func testQuote() *quote.Quote {
	usdKRW := decimal.NewFromInt(1350)
	usdRUB := decimal.NewFromInt(90)
	snapshot := rates.Snapshot{
		USDToKRW:  usdKRW,
		USDToRUB:  usdRUB,
		KRWToRUB:  usdRUB.Div(usdKRW),
		USDTToKRW: decimal.NewFromInt(1354),
		FetchedAt: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC),
	}
	fees := customs.Fees{
		Duty:      decimal.NewFromInt(10_589_400),
		Clearance: decimal.NewFromInt(25_000),
		Recycling: decimal.NewFromInt(51_000),
	}
	return &quote.Quote{
		Vehicle: &listing.VehicleListing{
			ID:             12345,
			Make:           "Hyundai",
			Model:          "Tucson",
			PriceNative:    1500,
			DisplacementCC: 1998,
			MileageKm:      42315,
			PhotoURLs:      []string{"https://ci.encar.com/carpicture/01.jpg"},
		},
		Age:            customs.BracketUnder3,
		DisplacementCC: 1998,
		PriceKRW:       decimal.NewFromInt(15_000_000),
		Fees:           fees,
		Breakdown:      quote.Aggregate(decimal.NewFromInt(15_000_000), fees, quote.FixedCharges{}, snapshot),
	}
}

func message(chatID int64, text string) Update {
	return Update{Message: &Message{Text: text, Chat: Chat{ID: chatID}}}
}

func newTestBot(api *stubAPI, calc *stubCalc) *Bot {
	return New(api, calc, nil, nil, time.Second, zerolog.Nop())
}

func TestStartCommand(t *testing.T) {
	api := &stubAPI{}
	bot := newTestBot(api, &stubCalc{})

	bot.handleMessage(context.Background(), message(7, "/start"))

	if !strings.Contains(api.lastText(t), "Encar") {
		t.Fatalf("greeting = %q", api.lastText(t))
	}
	if api.messages[0].keyboard == nil {
		t.Fatal("greeting should carry the main keyboard")
	}
}

func TestManualDialogHappyPath(t *testing.T) {
	api := &stubAPI{}
	calc := &stubCalc{quote: testQuote()}
	bot := newTestBot(api, calc)
	ctx := context.Background()

	bot.handleMessage(ctx, message(7, "Ручной расчёт"))
	if api.lastText(t) != askAgeText {
		t.Fatalf("expected age prompt, got %q", api.lastText(t))
	}

	bot.handleMessage(ctx, message(7, "до 3 лет"))
	if api.lastText(t) != askDisplacementText {
		t.Fatalf("expected displacement prompt, got %q", api.lastText(t))
	}

	bot.handleMessage(ctx, message(7, "1,998"))
	if api.lastText(t) != askPriceText {
		t.Fatalf("expected price prompt, got %q", api.lastText(t))
	}

	bot.handleMessage(ctx, message(7, "15,000,000"))

	if calc.manualIn == nil {
		t.Fatal("CalculateManual was not called")
	}
	if calc.manualIn.Age != customs.BracketUnder3 {
		t.Fatalf("Age = %s", calc.manualIn.Age)
	}
	if calc.manualIn.DisplacementCC != 1998 {
		t.Fatalf("DisplacementCC = %d", calc.manualIn.DisplacementCC)
	}
	if !calc.manualIn.PriceKRW.Equal(decimal.NewFromInt(15_000_000)) {
		t.Fatalf("PriceKRW = %s", calc.manualIn.PriceKRW)
	}
	if !strings.Contains(api.lastText(t), "Итого под ключ") {
		t.Fatalf("final message should contain the total, got %q", api.lastText(t))
	}
	if bot.session(7) != nil {
		t.Fatal("session should be cleared after the quote")
	}
}

func TestManualDialogRejectsGarbage(t *testing.T) {
	api := &stubAPI{}
	bot := newTestBot(api, &stubCalc{quote: testQuote()})
	ctx := context.Background()

	bot.handleMessage(ctx, message(7, "Ручной расчёт"))
	bot.handleMessage(ctx, message(7, "какой-то текст"))
	if api.lastText(t) != badAgeText {
		t.Fatalf("expected age re-prompt, got %q", api.lastText(t))
	}

	bot.handleMessage(ctx, message(7, "до 3 лет"))
	bot.handleMessage(ctx, message(7, "два литра"))
	if api.lastText(t) != badDisplacementText {
		t.Fatalf("expected displacement re-prompt, got %q", api.lastText(t))
	}
}

func TestListingURLTriggersQuote(t *testing.T) {
	api := &stubAPI{}
	calc := &stubCalc{quote: testQuote()}
	bot := newTestBot(api, calc)

	bot.handleMessage(context.Background(), message(7, "https://fem.encar.com/cars/detail/12345?query=x"))

	if len(calc.listingIDs) != 1 || calc.listingIDs[0] != 12345 {
		t.Fatalf("listingIDs = %v", calc.listingIDs)
	}
	if len(api.albums) != 1 {
		t.Fatal("photos should be sent as a media group")
	}
	if !strings.Contains(api.lastText(t), "Hyundai Tucson") {
		t.Fatalf("quote text = %q", api.lastText(t))
	}
}

func TestCalcErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"rates down", rates.ErrRateUnavailable, ratesUnavailableText},
		{"listing down", listing.ErrListingUnavailable, listingUnavailableText},
		{"off schedule", customs.ErrUnsupportedBracket, unsupportedBracketText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubAPI{}
			bot := newTestBot(api, &stubCalc{err: tc.err})

			bot.handleMessage(context.Background(), message(7, "https://fem.encar.com/cars/detail/12345"))
			if api.lastText(t) != tc.want {
				t.Fatalf("reply = %q, want %q", api.lastText(t), tc.want)
			}
		})
	}
}

func TestRatesCommand(t *testing.T) {
	api := &stubAPI{}
	calc := &stubCalc{snapshot: testQuote().Breakdown.Snapshot}
	bot := newTestBot(api, calc)

	bot.handleMessage(context.Background(), message(7, "/cbr"))
	if !strings.Contains(api.lastText(t), "1 USD = 1350 KRW") {
		t.Fatalf("rates reply = %q", api.lastText(t))
	}
}

func TestExtractListingID(t *testing.T) {
	cases := []struct {
		text string
		id   int64
		ok   bool
	}{
		{"https://fem.encar.com/cars/detail/39576482", 39576482, true},
		{"http://www.encar.com/dc/dc_cardetailview.do?carid=39576482", 39576482, true},
		{"https://fem.encar.com/cars/detail/39576482?pageid=fc_carsearch", 39576482, true},
		{"https://example.com/cars/detail/39576482", 0, false},
		{"just words", 0, false},
		{"39576482", 0, false},
	}

	for _, tc := range cases {
		id, ok := extractListingID(tc.text)
		if ok != tc.ok || id != tc.id {
			t.Fatalf("extractListingID(%q) = (%d, %v), want (%d, %v)", tc.text, id, ok, tc.id, tc.ok)
		}
	}
}
