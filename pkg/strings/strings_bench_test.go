// Package strings provides benchmarks for string building optimizations
package strings

import (
	"fmt"
	"strings"
	"testing"
)

// Generate test data
func generateTestStrings(count int) []string {
	strs := make([]string, count)
	for i := 0; i < count; i++ {
		strs[i] = fmt.Sprintf("test_string_%d", i)
	}
	return strs
}

// Benchmark string concatenation
func BenchmarkStringConcatenation(b *testing.B) {
	testStrings := generateTestStrings(100)

	b.Run("StandardConcatenation", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := ""
			for _, s := range testStrings {
				result += s + ","
			}
			_ = result
		}
	})

	b.Run("PooledConcat", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := Concat(testStrings...)
			_ = result
		}
	})

	b.Run("PooledJoin", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := JoinPooled(testStrings, ",")
			_ = result
		}
	})

	b.Run("StandardJoin", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := strings.Join(testStrings, ",")
			_ = result
		}
	})
}

// Benchmark sprintf vs pooled sprintf
func BenchmarkSprintfComparison(b *testing.B) {
	values := []interface{}{"test", 42, true, 3.14}
	format := "string: %s, int: %d, bool: %t, float: %.2f"

	b.Run("StandardSprintf", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := fmt.Sprintf(format, values...)
			_ = result
		}
	})

	b.Run("PooledSprintf", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := Sprintf(format, values...)
			_ = result
		}
	})
}

// Benchmark clone-name building, the hottest string path in the spawn layer
func BenchmarkCloneNameBuilding(b *testing.B) {
	keys := []string{"projectile", "enemy_grunt", "muzzle_flash", "pickup_health"}

	b.Run("PlusOperator", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = keys[i%len(keys)] + " (clone)"
		}
	})

	b.Run("PooledConcat", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = Concat(keys[i%len(keys)], " (clone)")
		}
	})
}

// Benchmark ValueToString against fmt for capture-field conversion
func BenchmarkValueToString(b *testing.B) {
	values := []interface{}{
		"text value",
		12345,
		int64(9876543210),
		3.14159,
		true,
		[]byte("byte value"),
	}

	b.Run("ValueToString", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			for _, v := range values {
				_ = ValueToString(v)
			}
		}
	})

	b.Run("StandardSprintf", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			for _, v := range values {
				_ = fmt.Sprintf("%v", v)
			}
		}
	})
}

// Benchmark builder pool efficiency
func BenchmarkBuilderPoolEfficiency(b *testing.B) {
	testStrings := generateTestStrings(50)

	b.Run("PooledBuilders", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				builder := GetBuilder(Small)
				for _, s := range testStrings {
					builder.WriteString(s)
					builder.WriteByte(',')
				}
				result := builder.String()
				PutBuilder(builder, Small)
				_ = result
			}
		})
	})

	b.Run("NewBuilders", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				builder := NewBuilder(1024)
				for _, s := range testStrings {
					builder.WriteString(s)
					builder.WriteByte(',')
				}
				result := builder.String()
				_ = result
			}
		})
	})
}

// Benchmark scaling with different data sizes
func BenchmarkStringBuildingScaling(b *testing.B) {
	sizes := []int{10, 100, 1000, 10000}

	for _, size := range sizes {
		testStrings := generateTestStrings(size)

		b.Run(fmt.Sprintf("StandardConcatenation_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				result := ""
				for _, s := range testStrings {
					result += s
				}
				_ = result
			}
		})

		b.Run(fmt.Sprintf("PooledConcat_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				result := Concat(testStrings...)
				_ = result
			}
		})

		b.Run(fmt.Sprintf("BuildString_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				result := BuildString(func(builder *Builder) {
					for _, s := range testStrings {
						builder.WriteString(s)
					}
				})
				_ = result
			}
		})
	}
}

// Test correctness
func TestStringBuildingCorrectness(t *testing.T) {
	testStrings := []string{"hello", "world", "test"}

	// Test concatenation
	expected := "helloworldtest"
	result := Concat(testStrings...)
	if result != expected {
		t.Errorf("Concat failed: expected %s, got %s", expected, result)
	}

	// Test join
	expected = "hello,world,test"
	result = JoinPooled(testStrings, ",")
	if result != expected {
		t.Errorf("JoinPooled failed: expected %s, got %s", expected, result)
	}

	// Test sprintf
	expected = "value: 42"
	result = Sprintf("value: %d", 42)
	if result != expected {
		t.Errorf("Sprintf failed: expected %s, got %s", expected, result)
	}

	// Test functional building
	expected = "spawned: projectile (clone)"
	result = BuildString(func(builder *Builder) {
		builder.WriteString("spawned: ")
		builder.WriteString("projectile")
		builder.WriteString(" (clone)")
	})
	if result != expected {
		t.Errorf("BuildString failed: expected %s, got %s", expected, result)
	}
}
