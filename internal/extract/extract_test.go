package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

var parsedAt = time.Date(2025, 6, 26, 17, 5, 0, 0, time.UTC)

const devinoBody = `Информационная рассылка Открыть в браузере +7 (495) 646-0054 +7 (800) 555-0054 Бесплатная линия по РоссииУведомление о технических работах Внеплановые работы на платформе Devino Telecom 
 
Уважаемые клиенты!
Уведомляем Вас о необходимости проведения внеплановых технических работ на платформе Devino Telecom.
Начало работ:** 26.06.2025 19:00** (МСК/GMT+3)
Окончание работ:** 26.06.2025 20:00** (МСК/GMT+3)
В указанный промежуток возможно несколько прерываний доступа к сервисам платформы DEVINO.
**Техническая поддержка Devino Telecom.**
*Copyright © 2025, All rights reserved.* Обратная связь Отписаться от рассылки`

const motivBody = `Уважаемые клиенты!
Оператор Мотив сообщил о необходимости проведения технических работ.
Начало работ:** 19.06.2025 21:00 **(МСК/GMT+3)
Окончание работ:** 20.06.2025 02:00** (МСК/GMT+3)
В указанный промежуток времени могут наблюдаться затруднения в доставке сообщений абонентам данного оператора.`

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		msg      model.DecodedMessage
		operator string
		start    string
		end      string
		workType string
	}{
		{
			name: "devino platform notice",
			msg: model.DecodedMessage{
				Subject: "Внеплановые работы на платформе Devino Telecom",
				Body:    devinoBody,
				From:    "no-reply@devinotele.com",
			},
			operator: "Devino Telecom",
			start:    "26.06.2025 19:00",
			end:      "26.06.2025 20:00",
			workType: "Внеплановые работы на платформе Devino Telecom",
		},
		{
			name: "carrier notice",
			msg: model.DecodedMessage{
				Subject: "Уведомление о технических работах Внеплановые работы на стороне оператора Мотив",
				Body:    motivBody,
			},
			operator: "Мотив",
			start:    "19.06.2025 21:00",
			end:      "20.06.2025 02:00",
			workType: "Уведомление о технических работах Внеплановые работы на стороне оператора Мотив",
		},
		{
			name: "reply prefix stripped from subject",
			msg: model.DecodedMessage{
				Subject: "Re: Внеплановые работы на платформе X",
				Body:    "Просим учесть при планировании.",
			},
			operator: "X",
			workType: "Внеплановые работы на платформе X",
		},
		{
			name: "from and until labels",
			msg: model.DecodedMessage{
				Subject: "Уведомление",
				Body:    "С 10.07.2025 01:00 по 10.07.2025 05:00 возможны задержки у абонентов МТС.",
			},
			operator: "МТС",
			start:    "10.07.2025 01:00",
			end:      "10.07.2025 05:00",
		},
		{
			name: "work type from body pattern",
			msg: model.DecodedMessage{
				Subject: "Уведомление",
				Body:    "Оператор Теле2 сообщил: проводятся аварийные работы на узле. Подробности позже.",
			},
			operator: "Теле2",
			workType: "аварийные работы на узле",
		},
		{
			name: "work type from keyword",
			msg: model.DecodedMessage{
				Subject: "Уведомление",
				Body:    "Начало: 01.08.2025 02:00. Планируются профилактические мероприятия.",
			},
			start:    "01.08.2025 02:00",
			workType: "Профилактические работы",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Parse(tt.msg, parsedAt)
			if rec == nil {
				t.Fatal("Parse returned nil")
			}
			if rec.Operator != tt.operator {
				t.Errorf("operator = %q, want %q", rec.Operator, tt.operator)
			}
			if rec.StartTime != tt.start {
				t.Errorf("start = %q, want %q", rec.StartTime, tt.start)
			}
			if rec.EndTime != tt.end {
				t.Errorf("end = %q, want %q", rec.EndTime, tt.end)
			}
			if rec.WorkType != tt.workType {
				t.Errorf("work type = %q, want %q", rec.WorkType, tt.workType)
			}
			if rec.OriginalSubject != tt.msg.Subject || rec.OriginalBody != tt.msg.Body {
				t.Error("original subject/body not carried over")
			}
			if !rec.ParsedAt.Equal(parsedAt) {
				t.Errorf("parsed at = %v", rec.ParsedAt)
			}
		})
	}
}

func TestParseAcceptanceGate(t *testing.T) {
	descOnly := model.DecodedMessage{
		Subject: "Новости компании",
		Body:    "Уважаемые клиенты! Мы обновили сайт.",
	}
	if rec := Parse(descOnly, parsedAt); rec != nil {
		t.Fatalf("expected no record, got %+v", rec)
	}

	operatorOnly := model.DecodedMessage{
		Subject: "Информация",
		Body:    "Оператор Билайн сообщил о проблемах",
	}
	rec := Parse(operatorOnly, parsedAt)
	if rec == nil {
		t.Fatal("a record with only an operator must be returned")
	}
	if rec.Operator != "Билайн" || rec.StartTime != "" || rec.EndTime != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	msg := model.DecodedMessage{Subject: "Внеплановые работы на платформе Devino Telecom", Body: devinoBody}
	a, b := Parse(msg, parsedAt), Parse(msg, parsedAt)
	if *a != *b {
		t.Fatalf("two parses differ:\n%+v\n%+v", a, b)
	}
}

func TestDescribe(t *testing.T) {
	long := strings.Repeat("ж", 350)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", noDescription},
		{"only boilerplate", "Copyright 2025 All rights reserved", noDescription},
		{
			"greeting isolated",
			"<p>Информационная рассылка</p><p>Уважаемые клиенты! Работы завершены.</p><p>Техническая поддержка</p>",
			"Уважаемые клиенты! Работы завершены.",
		},
		{"no greeting truncated", long, strings.Repeat("ж", 300) + "..."},
		{"greeting truncated", "Уважаемые клиенты " + long, string([]rune("Уважаемые клиенты " + long)[:300]) + "..."},
		{"phone removed", "Звоните +7 (495) 646-0054 днем", "Звоните днем"},
		{"phone with two dashes removed", "Звоните +7 (800) 555-00-54 днем", "Звоните днем"},
		{"both hotline numbers removed", "+7 (495) 646-0054 +7 (800) 555-0054 Плановые работы", "Плановые работы"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.body); got != tt.want {
				t.Fatalf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMaintenance(t *testing.T) {
	tests := []struct {
		subject, body string
		want          bool
	}{
		{"Внеплановые работы на платформе Devino Telecom", "", true},
		{"Уведомление", "Возможны ЗАТРУДНЕНИЯ В ДОСТАВКЕ сообщений", true},
		{"", "Начало работ: 01.01.2025 00:00", true},
		{"Счет за июнь", "Во вложении счет", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got := IsMaintenance(model.DecodedMessage{Subject: tt.subject, Body: tt.body})
		if got != tt.want {
			t.Errorf("IsMaintenance(%q, %q) = %v, want %v", tt.subject, tt.body, got, tt.want)
		}
	}
}

func TestRuleOrderFirstMatchWins(t *testing.T) {
	rules := []Rule{
		func(string, string) (string, bool) { return "", false },
		func(string, string) (string, bool) { return "second", true },
		func(string, string) (string, bool) { return "third", true },
	}
	if got := apply(rules, "", ""); got != "second" {
		t.Fatalf("apply = %q, want second", got)
	}
	if got := apply(nil, "", ""); got != "" {
		t.Fatalf("apply(nil) = %q", got)
	}
}
