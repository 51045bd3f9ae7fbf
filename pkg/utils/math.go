package utils

import "math"

// Abs возвращает абсолютное значение
func Abs(v float64) float64 {
	return math.Abs(v)
}

// RoundTo округляет до указанного количества знаков после запятой
func RoundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

// AlmostEqual сравнивает два float64 с допуском
// Используется в расчётах спреда и сверке результатов сделки
func AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
