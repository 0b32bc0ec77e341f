package courier

import (
	"crypto/rand"
	"fmt"

	"github.com/shoplink-next/internal/constants"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Tracking 运单信息
type Tracking struct {
	Number  string
	URL     string
	Courier string
}

// Generator 运单生成器
type Generator interface {
	Generate(orderID uint) (*Tracking, error)
}

// MockGenerator 模拟承运商的运单生成器，联调与演示环境使用
type MockGenerator struct {
	Courier string
}

// NewMockGenerator 创建模拟运单生成器
func NewMockGenerator(courier string) *MockGenerator {
	if courier == "" {
		courier = constants.CourierDefaultName
	}
	return &MockGenerator{Courier: courier}
}

// Generate 生成随机运单号与查询链接
func (g *MockGenerator) Generate(orderID uint) (*Tracking, error) {
	number, err := randomTrackingNumber(10)
	if err != nil {
		return nil, err
	}
	return &Tracking{
		Number:  number,
		URL:     fmt.Sprintf("https://track.example.com/%s", number),
		Courier: g.Courier,
	}, nil
}

func randomTrackingNumber(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return string(buf), nil
}
