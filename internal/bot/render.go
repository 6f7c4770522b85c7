package bot

import (
	"fmt"
	"strings"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/listing"
	"car-landed-cost/internal/numfmt"
	"car-landed-cost/internal/quote"
	"car-landed-cost/internal/rates"
)

var itemLabels = map[quote.LineItem]string{
	quote.ItemVehiclePrice:      "Стоимость автомобиля",
	quote.ItemCompanyService:    "Услуги компании",
	quote.ItemFreight:           "Фрахт до Владивостока",
	quote.ItemDealerFee:         "Комиссия дилера",
	quote.ItemDomesticDelivery:  "Доставка по Корее",
	quote.ItemDomesticTransfer:  "Перевод внутри Кореи",
	quote.ItemBrokerFee:         "Услуги брокера",
	quote.ItemCustomsDuty:       "Таможенная пошлина",
	quote.ItemCustomsClearance:  "Таможенное оформление",
	quote.ItemRecyclingFee:      "Утилизационный сбор",
	quote.ItemPortTransfer:      "Портовые расходы",
	quote.ItemWarehouse:         "Склад временного хранения",
	quote.ItemLabCertification:  "Лаборатория и СБКТС",
	quote.ItemTempRegistration:  "Временная регистрация",
	quote.ItemLongHaulTransport: "Автовоз до Москвы",
}

var bracketLabels = map[customs.AgeBracket]string{
	customs.BracketUnder3: "до 3 лет",
	customs.Bracket3To5:   "от 3 до 5 лет",
	customs.Bracket5To7:   "от 5 до 7 лет",
	customs.BracketOver7:  "старше 7 лет",
}

const (
	greetingText = "Здравствуйте! Я помогу рассчитать стоимость автомобиля из Кореи под ключ.\n\n" +
		"Пришлите ссылку на объявление Encar — и я посчитаю полную стоимость.\n" +
		"Либо нажмите «Ручной расчёт» и введите параметры сами."

	manualButton = "Ручной расчёт"
	ratesButton  = "Курсы валют"

	askAgeText          = "Выберите возраст автомобиля:"
	askDisplacementText = "Введите объём двигателя в куб. см (например, 1998):"
	askPriceText        = "Введите стоимость автомобиля в вонах (например, 15,000,000):"

	badAgeText          = "Пожалуйста, выберите возраст кнопкой ниже."
	badDisplacementText = "Не получилось разобрать объём двигателя. Введите число в куб. см, например 1998."
	badPriceText        = "Не получилось разобрать стоимость. Введите сумму в вонах, например 15,000,000."

	ratesUnavailableText    = "Курсы валют временно недоступны, попробуйте ещё раз через пару минут."
	listingUnavailableText  = "Не удалось получить данные объявления. Проверьте ссылку или попробуйте позже."
	unsupportedBracketText  = "К сожалению, такой автомобиль не попадает в таблицу расчёта пошлин."
	unknownCommandText      = "Пришлите ссылку на объявление Encar или воспользуйтесь кнопками ниже."
	internalErrorText       = "Что-то пошло не так. Попробуйте ещё раз."
	calculationFailedPrefix = "Расчёт не выполнен: "
)

func mainKeyboard() *ReplyKeyboard {
	return &ReplyKeyboard{
		Keyboard:       [][]string{{manualButton, ratesButton}},
		ResizeKeyboard: true,
	}
}

func ageKeyboard() *ReplyKeyboard {
	return &ReplyKeyboard{
		Keyboard: [][]string{
			{bracketLabels[customs.BracketUnder3], bracketLabels[customs.Bracket3To5]},
			{bracketLabels[customs.Bracket5To7], bracketLabels[customs.BracketOver7]},
		},
		OneTimeKeyboard: true,
		ResizeKeyboard:  true,
	}
}

func bracketFromLabel(label string) (customs.AgeBracket, bool) {
	for bracket, text := range bracketLabels {
		if strings.EqualFold(strings.TrimSpace(label), text) {
			return bracket, true
		}
	}
	return 0, false
}

func renderQuote(q *quote.Quote) string {
	var b strings.Builder

	if q.Vehicle != nil {
		b.WriteString(q.Vehicle.Title())
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Пробег: %s км, объём: %d см³\n",
			numfmt.Group(decimalFromInt(q.Vehicle.MileageKm)), q.DisplacementCC))
	} else {
		b.WriteString(fmt.Sprintf("Расчёт по параметрам: объём %d см³\n", q.DisplacementCC))
	}
	b.WriteString(fmt.Sprintf("Возраст: %s\n\n", bracketLabels[q.Age]))

	for _, key := range quote.ItemOrder {
		item := q.Breakdown.Items[key]
		b.WriteString(fmt.Sprintf("%s:\n  ₩%s | $%s | %s ₽\n",
			itemLabels[key],
			numfmt.Group(item.KRW.Round(0)),
			numfmt.GroupWithDigits(item.USD, 0),
			numfmt.Group(item.RUB.Round(0)),
		))
	}

	total := q.Breakdown.Total
	b.WriteString(fmt.Sprintf("\nИтого под ключ:\n  ₩%s | $%s | %s ₽",
		numfmt.Group(total.KRW.Round(0)),
		numfmt.GroupWithDigits(total.USD, 0),
		numfmt.Group(total.RUB.Round(0)),
	))
	return b.String()
}

func renderRates(snapshot rates.Snapshot) string {
	return fmt.Sprintf(
		"Курсы на %s UTC:\n"+
			"1 USD = %s KRW\n"+
			"1 USD = %s RUB\n"+
			"1000 KRW = %s RUB\n"+
			"1 USDT = %s KRW",
		snapshot.FetchedAt.UTC().Format("02.01.2006 15:04"),
		snapshot.USDToKRW.Round(2),
		snapshot.USDToRUB.Round(2),
		snapshot.KRWToRUB.Mul(thousand).Round(2),
		snapshot.USDTToKRW.Round(2),
	)
}

func renderInspection(report *listing.InspectionReport) string {
	var b strings.Builder
	b.WriteString("Техническая карта:\n")
	if report.ModelYear != "" {
		b.WriteString(fmt.Sprintf("Год выпуска: %s\n", report.ModelYear))
	}
	if report.FirstRegistered != "" {
		b.WriteString(fmt.Sprintf("Первая регистрация: %s\n", report.FirstRegistered))
	}
	if report.Usage != "" {
		b.WriteString(fmt.Sprintf("Использование: %s\n", report.Usage))
	}
	if len(report.RepairNeeded) > 0 {
		b.WriteString(fmt.Sprintf("Требует ремонта: %s\n", strings.Join(report.RepairNeeded, ", ")))
	}
	if len(report.PaintedParts) > 0 {
		b.WriteString(fmt.Sprintf("Окрашенные элементы: %d\n", len(report.PaintedParts)))
	}
	if len(report.SeriousDamage) > 0 {
		b.WriteString(fmt.Sprintf("Серьёзные повреждения: %d\n", len(report.SeriousDamage)))
	}
	if strings.TrimSpace(report.Comments) != "" {
		b.WriteString(fmt.Sprintf("Комментарий: %s\n", strings.TrimSpace(report.Comments)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderInsurance(summary *listing.InsuranceSummary) string {
	return fmt.Sprintf(
		"Страховая история:\n"+
			"Выплаты по этому авто: ₩%s\n"+
			"Выплаты по чужим авто: ₩%s",
		numfmt.Group(decimalFromInt(summary.OwnDamageKRW)),
		numfmt.Group(decimalFromInt(summary.OtherDamageKRW)),
	)
}
