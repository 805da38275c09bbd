package judge

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignCanonicalForm(t *testing.T) {
	params := map[string]string{
		"handle": "tourist",
		"apiKey": "k123",
		"time":   "1700000000",
	}

	// The signed string is the nonce, a slash, the method, a question
	// mark, the key-sorted parameters, a hash sign, and the secret.
	canonical := "123456/user.status?apiKey=k123&handle=tourist&time=1700000000#s3cret"
	sum := sha512.Sum512([]byte(canonical))
	want := "123456" + hex.EncodeToString(sum[:])

	got := Sign("user.status", params, "123456", "s3cret")
	if got != want {
		t.Errorf("Sign mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestSignSortsParameters(t *testing.T) {
	a := Sign("user.status", map[string]string{"b": "2", "a": "1"}, "000001", "x")
	b := Sign("user.status", map[string]string{"a": "1", "b": "2"}, "000001", "x")
	if a != b {
		t.Error("signature must not depend on parameter insertion order")
	}
}

func TestCodeforcesSubmissions(t *testing.T) {
	// Newest first, as the real API responds.
	payload := `{"status":"OK","result":[
		{"creationTimeSeconds":2000,"verdict":"OK","problem":{"contestId":4,"index":"A","name":"Watermelon"}},
		{"creationTimeSeconds":1500,"verdict":"WRONG_ANSWER","problem":{"contestId":4,"index":"A","name":"Watermelon"}},
		{"creationTimeSeconds":1000,"verdict":"OK","problem":{"name":"Old Gym Problem"}}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user.status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewCodeforces(CodeforcesConfig{Handle: "tourist", BaseURL: srv.URL})
	subs, err := c.Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions failed: %v", err)
	}

	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	// Oldest first after normalization.
	if subs[0].Key != "Old Gym Problem" {
		t.Errorf("expected name fallback key, got %q", subs[0].Key)
	}
	if subs[2].Key != "4-A" || !subs[2].Accepted {
		t.Errorf("expected accepted 4-A last, got %+v", subs[2])
	}
	if subs[1].Accepted {
		t.Error("WRONG_ANSWER must not be accepted")
	}
}

func TestCodeforcesRejectedCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED","comment":"handle: not found"}`))
	}))
	defer srv.Close()

	c := NewCodeforces(CodeforcesConfig{Handle: "nobody", BaseURL: srv.URL})
	if _, err := c.Submissions(context.Background()); err == nil {
		t.Fatal("expected an error for a FAILED envelope")
	}
}

func TestAtCoderSubmissionsSorted(t *testing.T) {
	payload := `[
		{"epoch_second":3000,"problem_id":"abc100_a","result":"AC"},
		{"epoch_second":1000,"problem_id":"abc001_a","result":"AC"},
		{"epoch_second":2000,"problem_id":"abc050_b","result":"WA"}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from_second"); got != "0" {
			t.Errorf("expected from_second=0, got %q", got)
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewAtCoder(AtCoderConfig{User: "ayonizm", BaseURL: srv.URL})
	subs, err := a.Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions failed: %v", err)
	}

	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if subs[0].Key != "abc001_a" || subs[2].Key != "abc100_a" {
		t.Errorf("submissions not sorted oldest first: %+v", subs)
	}
	if subs[1].Accepted {
		t.Error("WA must not be accepted")
	}
}

func TestExtractACRecords(t *testing.T) {
	page := `<html><script>var data = {"acRecords":{"CodeForces":["1-A","2-B"],` +
		`"AtCoder":["abc_a"],"tricky":"a \"}\" brace"},"failRecords":{}};</script></html>`

	records, err := extractACRecords(page)
	if err != nil {
		t.Fatalf("extractACRecords failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 keys, got %d", len(records))
	}
}

func TestExtractACRecordsMalformed(t *testing.T) {
	if _, err := extractACRecords("<html>no records here</html>"); err == nil {
		t.Error("expected an error when acRecords is absent")
	}
	if _, err := extractACRecords(`"acRecords":{"unterminated":`); err == nil {
		t.Error("expected an error for an unbalanced object")
	}
}

func TestCodeforcesUserInfo(t *testing.T) {
	payload := `{"status":"OK","result":[
		{"handle":"ayon6594","rating":1432,"maxRating":1521,"rank":"specialist","maxRank":"expert"}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user.info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("handles"); got != "ayon6594" {
			t.Errorf("expected handles=ayon6594, got %q", got)
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewCodeforces(CodeforcesConfig{Handle: "ayon6594", BaseURL: srv.URL})
	user, err := c.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("UserInfo failed: %v", err)
	}
	if user.MaxRating != 1521 || user.MaxRank != "expert" {
		t.Errorf("peak rating fields wrong: %+v", user)
	}
	if user.Handle != "ayon6594" || user.Rating != 1432 || user.Rank != "specialist" {
		t.Errorf("current rating fields wrong: %+v", user)
	}
}

func TestCodeforcesUserInfoEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","result":[]}`))
	}))
	defer srv.Close()

	c := NewCodeforces(CodeforcesConfig{Handle: "nobody", BaseURL: srv.URL})
	if _, err := c.UserInfo(context.Background()); err == nil {
		t.Error("expected an error for an empty result")
	}
}
