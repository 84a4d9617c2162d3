//go:build rp2040

package main

import "machine"

// initUSB configures machine.Serial, which is USB CDC on the RP2040
func initUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

func usbAvailable() int {
	return machine.Serial.Buffered()
}

func usbRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbWrite writes all of data, giving up after repeated zero-length writes
func usbWrite(data []byte) error {
	stalls := 0
	for len(data) > 0 {
		n, err := machine.Serial.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			stalls++
			if stalls > 10 {
				return errUSBStalled
			}
			continue
		}
		stalls = 0
		data = data[n:]
	}
	return nil
}
