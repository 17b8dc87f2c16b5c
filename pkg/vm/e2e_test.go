package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/compiler"
	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/vfs"
)

// runSrc compiles and runs src, returning the exit status and everything
// the program printed. args become argv[1:].
func runSrc(t *testing.T, src string, args ...string) (int64, string) {
	t.Helper()
	prog, err := compiler.Compile([]byte(src), nil)
	if err != nil {
		t.Fatalf("compile failed: %v\nsource:\n%s", err, src)
	}
	v := New(prog)
	var out bytes.Buffer
	v.Stdout = &out
	status, err := v.Run(append([]string{"a.out"}, args...))
	if err != nil {
		t.Fatalf("run failed: %v\nsource:\n%s", err, src)
	}
	return status, out.String()
}

func TestReturnValue(t *testing.T) {
	status, _ := runSrc(t, "int main() { return 6 * 7; }")
	if status != 42 {
		t.Errorf("expected 42, got %d", status)
	}
}

func TestLocalsAndAssignment(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  int a;
  int b;
  a = 10;
  b = a * 3;
  a = b - 5;
  return a;
}`)
	if status != 25 {
		t.Errorf("expected 25, got %d", status)
	}
}

func TestCharTruncation(t *testing.T) {
	// Storing 300 into a char keeps the low byte: 300 mod 256 = 44.
	status, _ := runSrc(t, `
int main() {
  char c;
  c = 300;
  return c;
}`)
	if status != 44 {
		t.Errorf("expected 44, got %d", status)
	}
}

func TestTruncationLaw(t *testing.T) {
	// A byte store through char* truncates; a word load through int* at
	// the same address does not.
	status, _ := runSrc(t, `
int main() {
  int x;
  int *p;
  char *c;
  x = 300;
  p = &x;
  c = (char *)&x;
  return (*p == 300) * 10 + (*c == 44);
}`)
	if status != 11 {
		t.Errorf("expected 11, got %d", status)
	}
}

func TestWhileLoop(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  int i;
  int sum;
  i = 1;
  sum = 0;
  while (i <= 10) {
    sum = sum + i;
    i = i + 1;
  }
  return sum;
}`)
	if status != 55 {
		t.Errorf("expected 55, got %d", status)
	}
}

func TestIfElseChain(t *testing.T) {
	src := `
int classify(int n) {
  if (n < 0) return 1;
  else if (n == 0) return 2;
  else return 3;
}
int main() { return classify(-5) * 100 + classify(0) * 10 + classify(9); }`
	status, _ := runSrc(t, src)
	if status != 123 {
		t.Errorf("expected 123, got %d", status)
	}
}

func TestRecursion(t *testing.T) {
	status, _ := runSrc(t, `
int fib(int n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
int main() { return fib(10); }`)
	if status != 55 {
		t.Errorf("expected fib(10)=55, got %d", status)
	}
}

func TestPointers(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  int a;
  int *p;
  a = 7;
  p = &a;
  *p = *p + 3;
  return a;
}`)
	if status != 10 {
		t.Errorf("expected 10, got %d", status)
	}
}

func TestPointerWalk(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  char *s;
  char *p;
  int n;
  s = "abc";
  p = s;
  n = 0;
  while (*p) {
    n = n + *p - 96;
    p = p + 1;
  }
  return n;
}`)
	if status != 6 { // 1 + 2 + 3
		t.Errorf("expected 6, got %d", status)
	}
}

func TestPostIncrement(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  int i;
  int j;
  i = 5;
  j = i++;
  return i * 10 + j;
}`)
	if status != 65 {
		t.Errorf("expected 65, got %d", status)
	}
}

func TestPreDecrementOnPointer(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  char *s;
  char *p;
  s = "xy";
  p = s + 1;
  return *--p;
}`)
	if status != 'x' {
		t.Errorf("expected %d, got %d", 'x', status)
	}
}

func TestTernaryAndLogical(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  int x;
  x = 3;
  return (x > 2 ? 10 : 20) + (x && 0) + (0 || 5 ? 1 : 0);
}`)
	if status != 11 {
		t.Errorf("expected 11, got %d", status)
	}
}

func TestEnum(t *testing.T) {
	status, _ := runSrc(t, `
enum { Zero, One, Five = 5, Six };
int main() { return Zero + One + Five + Six; }`)
	if status != 12 {
		t.Errorf("expected 12, got %d", status)
	}
}

func TestSizeof(t *testing.T) {
	status, _ := runSrc(t, `
int main() { return sizeof(int) + sizeof(char) + sizeof(int *) + sizeof(char **); }`)
	if status != 25 {
		t.Errorf("expected 25, got %d", status)
	}
}

func TestCast(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  char *p;
  p = (char *)malloc(8);
  *p = 65;
  return *(char *)p;
}`)
	if status != 65 {
		t.Errorf("expected 65, got %d", status)
	}
}

func TestGlobals(t *testing.T) {
	status, _ := runSrc(t, `
int g;
int bump(int by) { g = g + by; return g; }
int main() {
  g = 100;
  bump(1);
  bump(2);
  return g;
}`)
	if status != 103 {
		t.Errorf("expected 103, got %d", status)
	}
}

func TestShadowingRestoresGlobal(t *testing.T) {
	// The parameter g hides the global inside set(); the global must be
	// visible again afterwards.
	status, _ := runSrc(t, `
int g;
int set(int g) { return g + 1; }
int main() {
  g = 10;
  return set(5) + g;
}`)
	if status != 16 {
		t.Errorf("expected 16, got %d", status)
	}
}

func TestGlobalArray(t *testing.T) {
	status, _ := runSrc(t, `
int squares[10];
int main() {
  int i;
  i = 0;
  while (i < 10) {
    squares[i] = i * i;
    i++;
  }
  return squares[7];
}`)
	if status != 49 {
		t.Errorf("expected 49, got %d", status)
	}
}

func TestPrintf(t *testing.T) {
	status, out := runSrc(t, `
int main() {
  printf("hello %s, %d is 0x%x and char %c%%\n", "world", 42, 255, 'Z');
  return 0;
}`)
	if status != 0 {
		t.Errorf("expected status 0, got %d", status)
	}
	want := "hello world, 42 is 0xff and char Z%\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestPrintfWidth(t *testing.T) {
	_, out := runSrc(t, `int main() { printf("[%5d][%-5d]", 42, 42); return 0; }`)
	if out != "[   42][42   ]" {
		t.Errorf("expected padded fields, got %q", out)
	}
}

func TestMallocMemsetMemcmp(t *testing.T) {
	status, _ := runSrc(t, `
int main() {
  char *a;
  char *b;
  a = malloc(16);
  b = malloc(16);
  memset(a, 7, 16);
  memset(b, 7, 16);
  if (memcmp(a, b, 16)) return 1;
  *(b + 8) = 9;
  if (!memcmp(a, b, 16)) return 2;
  free(a);
  free(b);
  return 0;
}`)
	if status != 0 {
		t.Errorf("expected 0, got %d", status)
	}
}

func TestArgcArgv(t *testing.T) {
	src := `
int main(int argc, char **argv) {
  if (argc < 2) return 100;
  return *argv[1] - 'a';
}`
	status, _ := runSrc(t, src, "c")
	if status != 2 {
		t.Errorf("expected 2, got %d", status)
	}
	status, _ = runSrc(t, src)
	if status != 100 {
		t.Errorf("expected 100 without arguments, got %d", status)
	}
}

func TestExitCall(t *testing.T) {
	status, out := runSrc(t, `
int main() {
  printf("before");
  exit(3);
  printf("after");
  return 0;
}`)
	if status != 3 {
		t.Errorf("expected 3, got %d", status)
	}
	if out != "before" {
		t.Errorf("expected output to stop at exit, got %q", out)
	}
}

func TestDivideByZeroProgram(t *testing.T) {
	prog, err := compiler.Compile([]byte(`
int main() {
  int zero;
  zero = 0;
  return 1 / zero;
}`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(prog)
	v.Stdout = &bytes.Buffer{}
	_, err = v.Run(nil)
	if !errors.Is(err, ErrDivideByZero) {
		t.Errorf("expected divide-by-zero trap, got %v", err)
	}
}

func TestHugePointerDereferenceTraps(t *testing.T) {
	prog, err := compiler.Compile([]byte(`
int main() {
  int *p;
  p = (int *)0x7fffffffffffffff;
  return *p;
}`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(prog)
	v.Stdout = &bytes.Buffer{}
	_, err = v.Run(nil)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected out-of-bounds trap, got %v", err)
	}
}

func TestMallocHugeSizeFailsCleanly(t *testing.T) {
	// The guard global keeps the heap base nonzero so a successful
	// malloc is distinguishable from the 0 failure value.
	status, _ := runSrc(t, `
int guard;
int main() {
  if (malloc(0x7fffffffffffffff)) return 1;
  if (!malloc(8)) return 2;
  return 0;
}`)
	if status != 0 {
		t.Errorf("expected 0, got %d", status)
	}
}

func TestPrintfCharTruncates(t *testing.T) {
	_, out := runSrc(t, `int main() { printf("%c", 321); return 0; }`)
	if out != "A" { // 321 mod 256 = 65
		t.Errorf("expected %q, got %q", "A", out)
	}
}

func TestPrintfNoArgsTraps(t *testing.T) {
	prog, err := compiler.Compile([]byte(`int main() { printf(); return 0; }`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(prog)
	v.Stdout = &bytes.Buffer{}
	_, err = v.Run(nil)
	if !errors.Is(err, ErrIllegalInstruction) {
		t.Errorf("expected illegal-instruction trap, got %v", err)
	}
}

func TestFileIO(t *testing.T) {
	fs := vfs.NewMemFS()
	if err := fs.Write("greet.txt", []byte("hello")); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	prog, err := compiler.Compile([]byte(`
int main() {
  int fd;
  char *buf;
  fd = open("greet.txt", 0);
  if (fd < 0) return 1;
  buf = malloc(32);
  memset(buf, 0, 32);
  read(fd, buf, 5);
  close(fd);
  printf("%s\n", buf);
  return 0;
}`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(prog)
	v.FS = fs
	var out bytes.Buffer
	v.Stdout = &out
	status, err := v.Run(nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 0 {
		t.Errorf("expected 0, got %d", status)
	}
	if out.String() != "hello\n" {
		t.Errorf("expected %q, got %q", "hello\n", out.String())
	}
}

func TestOpenMissingFileReturnsNegative(t *testing.T) {
	prog, err := compiler.Compile([]byte(`
int main() {
  if (open("missing.txt", 0) < 0) return 7;
  return 0;
}`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(prog)
	v.FS = vfs.NewMemFS()
	v.Stdout = &bytes.Buffer{}
	status, err := v.Run(nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 7 {
		t.Errorf("expected 7, got %d", status)
	}
}

func TestVoidTreatedAsChar(t *testing.T) {
	status, _ := runSrc(t, `
void put(int c) { printf("%c", c); }
int main() { put('k'); return sizeof(void *); }`)
	if status != 8 {
		t.Errorf("expected 8, got %d", status)
	}
}
