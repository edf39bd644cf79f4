package conformance

import "testing"

func TestResultStringRoundTrip(t *testing.T) {
	for _, r := range []Result{Skip, Pass, Warn, Fail, Crash, Timeout} {
		got, err := ParseResult(r.String())
		if err != nil {
			t.Fatalf("ParseResult(%q): %v", r.String(), err)
		}
		if got != r {
			t.Errorf("ParseResult(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if _, err := ParseResult("maybe"); err == nil {
		t.Error("ParseResult(\"maybe\") should fail")
	}
	if s := Result(42).String(); s != "Result(42)" {
		t.Errorf("Result(42).String() = %q", s)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		a, b, want Result
	}{
		{Skip, Skip, Skip},
		{Skip, Pass, Pass},
		{Pass, Skip, Pass},
		{Pass, Pass, Pass},
		{Pass, Warn, Warn},
		{Pass, Fail, Fail},
		{Fail, Pass, Fail},
		{Warn, Fail, Fail},
		{Fail, Crash, Crash},
		{Timeout, Fail, Timeout},
	}
	for _, tt := range tests {
		if got := Merge(tt.a, tt.b); got != tt.want {
			t.Errorf("Merge(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMergeAll(t *testing.T) {
	if got := MergeAll(); got != Skip {
		t.Errorf("MergeAll() = %v, want skip", got)
	}
	if got := MergeAll(Pass, Pass, Skip); got != Pass {
		t.Errorf("MergeAll(pass, pass, skip) = %v, want pass", got)
	}
	if got := MergeAll(Pass, Fail, Pass); got != Fail {
		t.Errorf("MergeAll(pass, fail, pass) = %v, want fail", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := map[Result]int{
		Pass: 0, Skip: 0, Warn: 0,
		Fail: 1, Crash: 1, Timeout: 1,
	}
	for r, want := range tests {
		if got := r.ExitCode(); got != want {
			t.Errorf("%v.ExitCode() = %d, want %d", r, got, want)
		}
	}
}

func TestResultText(t *testing.T) {
	b, err := Crash.MarshalText()
	if err != nil || string(b) != "crash" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
	var r Result
	if err := r.UnmarshalText([]byte("warn")); err != nil || r != Warn {
		t.Errorf("UnmarshalText(warn) = %v, %v", r, err)
	}
	if err := r.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) succeeded")
	}
}
