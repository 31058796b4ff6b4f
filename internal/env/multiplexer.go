package env

import (
	"fmt"
	"math/rand"
	"strconv"

	"xcs/internal/model"
)

// MultiplexerBits returns the total input width of the multiplexer with the
// given number of address bits.
func MultiplexerBits(addressBits int) int {
	return addressBits + 1<<addressBits
}

// MultiplexerClass evaluates the multiplexer on bits: the address bits select
// one of the register bits, which is the class.
func MultiplexerClass(bits []int, addressBits int) int {
	address := 0
	for i := 0; i < addressBits; i++ {
		address = address<<1 | bits[i]
	}
	return bits[addressBits+address]
}

// GenerateMultiplexer draws count random multiplexer instances. With
// count <= 0 every input is enumerated once, which is only practical for
// small problems.
func GenerateMultiplexer(rng *rand.Rand, addressBits, count int) (Dataset, error) {
	if addressBits < 1 || addressBits > 5 {
		return Dataset{}, fmt.Errorf("multiplexer address bits must be in [1, 5], got %d", addressBits)
	}
	width := MultiplexerBits(addressBits)
	attrs := make([]model.Attribute, width)
	for i := range attrs {
		attrs[i] = model.Attribute{Name: fmt.Sprintf("A_%d", i)}
	}

	var inputs [][]int
	if count <= 0 {
		if width > 20 {
			return Dataset{}, fmt.Errorf("refusing to enumerate %d-bit multiplexer", width)
		}
		for v := 0; v < 1<<width; v++ {
			bits := make([]int, width)
			for i := range bits {
				bits[i] = v >> (width - 1 - i) & 1
			}
			inputs = append(inputs, bits)
		}
	} else {
		if rng == nil {
			return Dataset{}, fmt.Errorf("random source is required")
		}
		for n := 0; n < count; n++ {
			bits := make([]int, width)
			for i := range bits {
				bits[i] = rng.Intn(2)
			}
			inputs = append(inputs, bits)
		}
	}

	instances := make([]Instance, 0, len(inputs))
	for n, bits := range inputs {
		state := make(model.State, width)
		for i, b := range bits {
			state[i] = model.Feature{Text: strconv.Itoa(b)}
		}
		instances = append(instances, Instance{
			ID:     strconv.Itoa(n + 1),
			State:  state,
			Action: model.DiscreteAction(strconv.Itoa(MultiplexerClass(bits, addressBits))),
		})
	}

	return Dataset{
		Name: fmt.Sprintf("multiplexer_%d", width),
		Space: model.ProblemSpace{
			Attributes: attrs,
			Actions:    model.ActionSpace{Discrete: true, Labels: []string{"0", "1"}},
		},
		Instances: instances,
	}, nil
}
