package sensor

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	mpu6050PwrMgmt1   = 0x6B
	mpu6050AccelXOutH = 0x3B
	mpu6050ReadLen    = 14 // accel(6) + temp(2) + gyro(6), contiguous registers

	accelLSBPerG      = 16384.0
	gyroLSBPerDegPerS = 131.0
	gStandard         = 9.80665
)

// MPU6050Provider reads orientation from a real MPU6050 IMU over I2C using
// a single burst read across its contiguous accel/temp/gyro registers,
// adapted to periph.io's i2c.Dev like pwmbus.PCA9685Bus.
type MPU6050Provider struct {
	dev *i2c.Dev
}

// NewMPU6050Provider opens busName (empty selects the default bus) and
// wakes the device out of sleep mode.
func NewMPU6050Provider(busName string, addr uint16) (*MPU6050Provider, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing host drivers")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrap(err, "opening i2c bus")
	}
	dev := &i2c.Dev{Bus: bus, Addr: addr}
	if err := dev.Tx([]byte{mpu6050PwrMgmt1, 0x00}, nil); err != nil {
		return nil, errors.Wrap(err, "waking mpu6050")
	}
	return &MPU6050Provider{dev: dev}, nil
}

// ReadOrientation performs a single 14-byte burst read starting at
// ACCEL_XOUT_H and decodes accel, temperature, and gyro per the MPU6050
// datasheet's fixed register layout and LSB scale factors.
func (m *MPU6050Provider) ReadOrientation() (Orientation, error) {
	raw := make([]byte, mpu6050ReadLen)
	if err := m.dev.Tx([]byte{mpu6050AccelXOutH}, raw); err != nil {
		return Orientation{}, errors.Wrap(err, "reading mpu6050 registers")
	}

	readInt16 := func(off int) int16 {
		return int16(binary.BigEndian.Uint16(raw[off : off+2]))
	}

	accelX := float64(readInt16(0)) / accelLSBPerG * gStandard
	accelY := float64(readInt16(2)) / accelLSBPerG * gStandard
	accelZ := float64(readInt16(4)) / accelLSBPerG * gStandard
	tempRaw := readInt16(6)
	gyroX := float64(readInt16(8)) / gyroLSBPerDegPerS
	gyroY := float64(readInt16(10)) / gyroLSBPerDegPerS
	gyroZ := float64(readInt16(12)) / gyroLSBPerDegPerS

	return Orientation{
		Accel: Vector3{X: accelX, Y: accelY, Z: accelZ},
		Gyro:  Vector3{X: gyroX, Y: gyroY, Z: gyroZ},
		TempC: float64(tempRaw)/340.0 + 36.53,
	}, nil
}
