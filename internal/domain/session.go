package domain

import (
	"fmt"
	"strings"
	"time"
)

// Sesión regular de la bolsa de EE.UU. en UTC (9:30–16:00 ET sin horario de verano).
const (
	sessionOpenHour  = 13
	sessionOpenMin   = 30
	sessionCloseHour = 20
)

// BarRequest describe un pedido de barras históricas.
type BarRequest struct {
	Symbols   []string
	Start     time.Time
	End       time.Time
	Timeframe Timeframe
}

// Timeframe es la resolución de las barras.
type Timeframe string

const (
	TimeframeMinute Timeframe = "1Min"
	TimeframeHour   Timeframe = "1Hour"
	TimeframeDay    Timeframe = "1Day"
)

// ParseTimeframe acepta "minute", "hour" o "day" (y sus formas 1Min/1Hour/1Day).
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "1min":
		return TimeframeMinute, nil
	case "hour", "1hour":
		return TimeframeHour, nil
	case "day", "1day":
		return TimeframeDay, nil
	default:
		return "", fmt.Errorf("domain.ParseTimeframe: unknown timeframe %q (want minute|hour|day)", s)
	}
}

// Duration devuelve la duración de una barra.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeMinute:
		return time.Minute
	case TimeframeHour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// TradingDays es la cantidad de sesiones por año usada para anualizar.
const TradingDays = 252

// BarsPerDay devuelve cuántas barras tiene una sesión regular.
func (t Timeframe) BarsPerDay() int {
	switch t {
	case TimeframeMinute:
		return 390
	case TimeframeHour:
		return 7 // 13:30, 14:30 ... 19:30
	default:
		return 1
	}
}

// TradingSession devuelve apertura y cierre de la sesión regular del día dado.
func TradingSession(day time.Time) (opens, closes time.Time) {
	day = day.UTC()
	opens = time.Date(day.Year(), day.Month(), day.Day(), sessionOpenHour, sessionOpenMin, 0, 0, time.UTC)
	closes = time.Date(day.Year(), day.Month(), day.Day(), sessionCloseHour, 0, 0, 0, time.UTC)
	return opens, closes
}

// LookbackRequest construye un BarRequest desde la apertura de hace
// lookbackDays días hasta el cierre del día de end.
func LookbackRequest(symbols []string, lookbackDays int, end time.Time, tf Timeframe) BarRequest {
	_, stop := TradingSession(end)
	start, _ := TradingSession(end.AddDate(0, 0, -lookbackDays))
	return BarRequest{Symbols: symbols, Start: start, End: stop, Timeframe: tf}
}
